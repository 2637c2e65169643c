package repository

import (
	"context"

	"github.com/and161185/forever-vivid/internal/model"
)

// DocumentRepository stores append-only documents grouped by collection path.
type DocumentRepository interface {
	// Append stores doc under its Path for owner and sets doc.Seq.
	Append(ctx context.Context, owner string, doc *model.Document) error

	// List returns every document of the collection at path, ordered by Seq.
	List(ctx context.Context, path string) ([]model.Document, error)
}
