package domain

// Metadata is a partial set of bibliographic fields produced by an extractor
// or an external source. Nil means "unknown"; enrichment never lets a known
// value be replaced by a later source.
type Metadata struct {
	Title           *string  `json:"title,omitempty"`
	Author          *string  `json:"author,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Publisher       *string  `json:"publisher,omitempty"`
	Language        *string  `json:"language,omitempty"`
	ISBN            *string  `json:"isbn,omitempty"`
	PublicationDate *string  `json:"publication_date,omitempty"`
	Series          *string  `json:"series,omitempty"`
	Volume          *int     `json:"volume,omitempty"`
	Genres          []string `json:"genres,omitempty"`
}

// IsEmpty reports whether no field is set.
func (m *Metadata) IsEmpty() bool {
	return m.Title == nil && m.Author == nil && m.Description == nil &&
		m.Publisher == nil && m.Language == nil && m.ISBN == nil &&
		m.PublicationDate == nil && m.Series == nil && m.Volume == nil &&
		len(m.Genres) == 0
}

// BookPatch is a partial update applied to a stored book. Only non-nil
// fields are written; Genres is applied when non-nil (an empty non-nil
// slice clears the list).
type BookPatch struct {
	Title           *string     `json:"title,omitempty"`
	Author          *string     `json:"author,omitempty"`
	Description     *string     `json:"description,omitempty"`
	Publisher       *string     `json:"publisher,omitempty"`
	Language        *string     `json:"language,omitempty"`
	ISBN            *string     `json:"isbn,omitempty"`
	PublicationDate *string     `json:"publication_date,omitempty"`
	Series          *string     `json:"series,omitempty"`
	Volume          *int        `json:"volume,omitempty"`
	Genres          []string    `json:"genres,omitempty"`
	CoverPath       *string     `json:"cover_path,omitempty"`
	CoverBlurHash   *string     `json:"cover_blurhash,omitempty"`
	Status          *BookStatus `json:"status,omitempty"`
	FailureReason   *string     `json:"failure_reason,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p *BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Description == nil &&
		p.Publisher == nil && p.Language == nil && p.ISBN == nil &&
		p.PublicationDate == nil && p.Series == nil && p.Volume == nil &&
		p.Genres == nil && p.CoverPath == nil && p.CoverBlurHash == nil &&
		p.Status == nil && p.FailureReason == nil
}

// Fields returns the names of the fields the patch sets, in a stable
// order. Status bookkeeping fields are not listed; the result feeds
// fieldsUpdated in events.
func (p *BookPatch) Fields() []string {
	fields := make([]string, 0, 12)
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Author != nil {
		fields = append(fields, "author")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Publisher != nil {
		fields = append(fields, "publisher")
	}
	if p.Language != nil {
		fields = append(fields, "language")
	}
	if p.ISBN != nil {
		fields = append(fields, "isbn")
	}
	if p.PublicationDate != nil {
		fields = append(fields, "publication_date")
	}
	if p.Series != nil {
		fields = append(fields, "series")
	}
	if p.Volume != nil {
		fields = append(fields, "volume")
	}
	if p.Genres != nil {
		fields = append(fields, "genres")
	}
	if p.CoverPath != nil {
		fields = append(fields, "cover_path")
	}
	if p.CoverBlurHash != nil {
		fields = append(fields, "cover_blurhash")
	}
	return fields
}

// Apply writes the patch onto a book in place. The store calls this inside
// its update transaction; callers outside tests should go through the store.
func (p *BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = p.Title
	}
	if p.Author != nil {
		b.Author = p.Author
	}
	if p.Description != nil {
		b.Description = p.Description
	}
	if p.Publisher != nil {
		b.Publisher = p.Publisher
	}
	if p.Language != nil {
		b.Language = p.Language
	}
	if p.ISBN != nil {
		b.ISBN = p.ISBN
	}
	if p.PublicationDate != nil {
		b.PublicationDate = p.PublicationDate
	}
	if p.Series != nil {
		b.Series = p.Series
	}
	if p.Volume != nil {
		b.Volume = p.Volume
	}
	if p.Genres != nil {
		b.Genres = p.Genres
	}
	if p.CoverPath != nil {
		b.CoverPath = p.CoverPath
	}
	if p.CoverBlurHash != nil {
		b.CoverBlurHash = p.CoverBlurHash
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.FailureReason != nil {
		b.FailureReason = *p.FailureReason
	}
	b.Touch()
}

// StatusPatch builds a patch that only moves the status.
func StatusPatch(status BookStatus) *BookPatch {
	return &BookPatch{Status: &status}
}

// QuarantinePatch builds the patch that quarantines a book with a reason.
func QuarantinePatch(reason string) *BookPatch {
	status := StatusQuarantine
	return &BookPatch{Status: &status, FailureReason: &reason}
}

// Ptr returns a pointer to v. Convenience for building patches and partial
// metadata from literals.
func Ptr[T any](v T) *T {
	return &v
}
