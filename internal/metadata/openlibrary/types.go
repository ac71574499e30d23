package openlibrary

// Doc is one result row from the OpenLibrary search API, trimmed to the
// fields named in searchFields. Array fields keep the API's ordering.
type Doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	Publisher        []string `json:"publisher"`
	Language         []string `json:"language"`
	Subject          []string `json:"subject"`
	CoverID          int64    `json:"cover_i"`
}

// Author returns the first listed author, or "".
func (d *Doc) Author() string {
	if len(d.AuthorName) == 0 {
		return ""
	}
	return d.AuthorName[0]
}

// BestISBN prefers an ISBN-13 over an ISBN-10, or returns "" when the
// doc lists none.
func (d *Doc) BestISBN() string {
	var fallback string
	for _, isbn := range d.ISBN {
		if len(isbn) == 13 {
			return isbn
		}
		if fallback == "" && isbn != "" {
			fallback = isbn
		}
	}
	return fallback
}

// FirstPublisher returns the first listed publisher, or "".
func (d *Doc) FirstPublisher() string {
	if len(d.Publisher) == 0 {
		return ""
	}
	return d.Publisher[0]
}
