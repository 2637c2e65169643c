package model

import "time"

// Memory field keys as stored.
const (
	FieldDate         = "date"
	FieldDescription  = "description"
	FieldImageURL     = "imageUrl"
	FieldFullImageURL = "fullImageUrl"
	FieldTags         = "tags"
	FieldHasMusic     = "hasMusic"
	FieldCreatedAt    = "createdAt"
)

// Display defaults for memories.
const (
	DefaultDescription  = "Default description"
	DefaultImageURL     = "https://via.placeholder.com/100x100?text=Mem"
	DefaultFullImageURL = "https://via.placeholder.com/600x400?text=FullMem"

	// LongDateLayout renders dates like "March 4, 2025".
	LongDateLayout = "January 2, 2006"
)

// Memory is a piece of personal media in the home feed.
type Memory struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"imageUrl"`
	FullImageURL string    `json:"fullImageUrl"`
	Tags         []string  `json:"tags"`
	HasMusic     bool      `json:"hasMusic"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DefaultMemory is the record stored fields are merged over. now fills the date and
// the creation time.
func DefaultMemory(now time.Time) Memory {
	return Memory{
		Date:         now.Format(LongDateLayout),
		Description:  DefaultDescription,
		ImageURL:     DefaultImageURL,
		FullImageURL: DefaultFullImageURL,
		Tags:         []string{"No", "Tags"},
		HasMusic:     false,
		CreatedAt:    now,
	}
}

// MemoryFromDocument merges the stored fields of doc over DefaultMemory(now).
// A stored value replaces the default only when its key is present and well typed.
// now is the snapshot construction time and stands in for a missing createdAt.
func MemoryFromDocument(doc Document, now time.Time) Memory {
	m := DefaultMemory(now)
	m.ID = doc.ID
	f := doc.Fields
	if v, ok := stringField(f, FieldDate); ok {
		m.Date = v
	}
	if v, ok := stringField(f, FieldDescription); ok {
		m.Description = v
	}
	if v, ok := stringField(f, FieldImageURL); ok {
		m.ImageURL = v
	}
	if v, ok := stringField(f, FieldFullImageURL); ok {
		m.FullImageURL = v
	}
	if v, ok := stringsField(f, FieldTags); ok {
		m.Tags = v
	}
	if v, ok := boolField(f, FieldHasMusic); ok {
		m.HasMusic = v
	}
	if v, ok := timeField(f, FieldCreatedAt); ok {
		m.CreatedAt = v
	}
	return m
}

// CreatedDate renders the creation time the way the memory detail screen shows it.
func (m Memory) CreatedDate() string {
	return m.CreatedAt.Format(LongDateLayout)
}
