package googlebooks

// Volume is one result row from the volumes API.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo carries the metadata block of a volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	Categories          []string             `json:"categories"`
	Language            string               `json:"language"`
	ImageLinks          *ImageLinks          `json:"imageLinks"`
}

// IndustryIdentifier is an ISBN or other identifier attached to a volume.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ImageLinks lists the cover renditions the API exposes, smallest to
// largest.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
	Small          string `json:"small"`
	Medium         string `json:"medium"`
	Large          string `json:"large"`
	ExtraLarge     string `json:"extraLarge"`
}

// Author returns the first listed author, or "".
func (v *Volume) Author() string {
	if len(v.VolumeInfo.Authors) == 0 {
		return ""
	}
	return v.VolumeInfo.Authors[0]
}

// ISBN prefers the ISBN_13 identifier, falling back to ISBN_10.
func (v *Volume) ISBN() string {
	var fallback string
	for _, id := range v.VolumeInfo.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			if fallback == "" {
				fallback = id.Identifier
			}
		}
	}
	return fallback
}
