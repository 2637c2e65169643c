package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/forever-vivid/internal/convert"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
)

// DocumentRepo implements DocumentRepository using PostgreSQL.
type DocumentRepo struct{ db *DB }

// NewDocumentRepo constructs a document repository.
func NewDocumentRepo(db *DB) *DocumentRepo { return &DocumentRepo{db: db} }

// Append inserts doc and sets its sequence number.
func (r *DocumentRepo) Append(ctx context.Context, owner string, doc *model.Document) error {
	body, err := convert.FieldsToJSON(doc.Fields)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	const q = `
INSERT INTO documents (id, collection_path, owner_id, fields, create_time)
VALUES ($1, $2, $3, $4, $5)
RETURNING seq`
	var seq int64
	if err := r.db.Pool.QueryRow(ctx, q, doc.ID, doc.Path, owner, body, doc.CreateTime).Scan(&seq); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrAlreadyExists
		}
		return err
	}
	doc.Seq = seq
	return nil
}

// List returns documents of one collection in insertion order.
func (r *DocumentRepo) List(ctx context.Context, path string) ([]model.Document, error) {
	const q = `
SELECT id::text, fields, create_time, seq
FROM documents
WHERE collection_path=$1
ORDER BY seq ASC`
	rows, err := r.db.Pool.Query(ctx, q, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		var (
			id   string
			body []byte
			ts   time.Time
			seq  int64
		)
		if err = rows.Scan(&id, &body, &ts, &seq); err != nil {
			return nil, err
		}
		f, err := convert.FieldsFromJSON(body)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		out = append(out, model.Document{ID: id, Path: path, Fields: f, CreateTime: ts, Seq: seq})
	}
	return out, rows.Err()
}
