package model

import (
	"fmt"
	"time"
)

// ProjectType is the closed set of project kinds. It picks the rendering variant and
// the bucket a project falls into.
type ProjectType string

// Project types.
const (
	ProjectBook ProjectType = "book"
	ProjectFilm ProjectType = "film"
	ProjectGift ProjectType = "gift"
)

// Valid reports whether t is one of book, film or gift.
func (t ProjectType) Valid() bool {
	switch t {
	case ProjectBook, ProjectFilm, ProjectGift:
		return true
	}
	return false
}

// Label is the human name of the project kind.
func (t ProjectType) Label() string {
	switch t {
	case ProjectBook:
		return "Memory Book"
	case ProjectFilm:
		return "Memory Film"
	case ProjectGift:
		return "Printed Gift"
	}
	return "Project"
}

// ParseProjectType parses one of "book", "film", "gift".
func ParseProjectType(s string) (ProjectType, error) {
	t := ProjectType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown project type %q (want book, film or gift)", s)
	}
	return t, nil
}

// Project field keys as stored.
const (
	FieldType       = "type"
	FieldTitle      = "title"
	FieldCover      = "cover"
	FieldThumbnail  = "thumbnail"
	FieldImages     = "images"
	FieldProgress   = "progress"
	FieldLastEdited = "lastEdited"
	FieldMemoryIDs  = "memoryIds"
)

// Display defaults for projects.
const (
	DefaultTitle        = "Untitled project"
	DefaultCoverURL     = "https://via.placeholder.com/100x130?text=Book"
	DefaultThumbnailURL = "https://via.placeholder.com/180x100?text=Film"

	// ShortDateLayout renders dates like "3/4/2025".
	ShortDateLayout = "1/2/2006"
)

// Project is a creative project (book, film or printed gift) built from memories.
type Project struct {
	ID         string      `json:"id"`
	Type       ProjectType `json:"type"`
	Title      string      `json:"title"`
	Cover      string      `json:"cover"`
	Thumbnail  string      `json:"thumbnail"`
	Images     []string    `json:"images"`
	Progress   int         `json:"progress"`
	LastEdited string      `json:"lastEdited"`
	MemoryIDs  []string    `json:"memoryIds"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// DefaultProject is the record stored fields are merged over. Type has no display
// default: a project without a valid type belongs to no bucket.
func DefaultProject(now time.Time) Project {
	return Project{
		Title:      DefaultTitle,
		Cover:      DefaultCoverURL,
		Thumbnail:  DefaultThumbnailURL,
		Images:     []string{},
		Progress:   0,
		LastEdited: now.Format(ShortDateLayout),
		MemoryIDs:  []string{},
		CreatedAt:  now,
	}
}

// ProjectFromDocument merges the stored fields of doc over DefaultProject(now).
// Progress is clamped to 0–100 and memory ids are de-duplicated keeping first occurrence.
func ProjectFromDocument(doc Document, now time.Time) Project {
	p := DefaultProject(now)
	p.ID = doc.ID
	f := doc.Fields
	if v, ok := stringField(f, FieldType); ok {
		if t := ProjectType(v); t.Valid() {
			p.Type = t
		}
	}
	if v, ok := stringField(f, FieldTitle); ok {
		p.Title = v
	}
	if v, ok := stringField(f, FieldCover); ok {
		p.Cover = v
	}
	if v, ok := stringField(f, FieldThumbnail); ok {
		p.Thumbnail = v
	}
	if v, ok := stringsField(f, FieldImages); ok {
		p.Images = v
	}
	if v, ok := intField(f, FieldProgress); ok {
		p.Progress = min(max(v, 0), 100)
	}
	if v, ok := stringField(f, FieldLastEdited); ok {
		p.LastEdited = v
	}
	if v, ok := stringsField(f, FieldMemoryIDs); ok {
		p.MemoryIDs = dedupe(v)
	}
	if v, ok := timeField(f, FieldCreatedAt); ok {
		p.CreatedAt = v
	}
	return p
}

// Buckets groups projects by type, preserving snapshot order inside each bucket.
type Buckets struct {
	Books []Project `json:"memoryBooks"`
	Films []Project `json:"memoryFilms"`
	Gifts []Project `json:"printedGifts"`
}

// Categorize splits projects into the three buckets. Projects without a valid type
// land in none. Buckets are never nil.
func Categorize(projects []Project) Buckets {
	b := Buckets{Books: []Project{}, Films: []Project{}, Gifts: []Project{}}
	for _, p := range projects {
		switch p.Type {
		case ProjectBook:
			b.Books = append(b.Books, p)
		case ProjectFilm:
			b.Films = append(b.Films, p)
		case ProjectGift:
			b.Gifts = append(b.Gifts, p)
		}
	}
	return b
}

// For returns the bucket holding projects of type t.
func (b Buckets) For(t ProjectType) []Project {
	switch t {
	case ProjectBook:
		return b.Books
	case ProjectFilm:
		return b.Films
	case ProjectGift:
		return b.Gifts
	}
	return nil
}
