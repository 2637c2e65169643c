// Package memory provides in-process repositories for DATABASE_DSN=memory:// and tests.
// Documents are stored in their encoded form so reads behave like the Postgres backend.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/and161185/forever-vivid/internal/convert"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
)

// UserRepo is an in-memory UserRepository.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]model.User
	now   func() time.Time
}

// NewUserRepo constructs an empty user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: map[string]model.User{}, now: time.Now}
}

// Create inserts u.
func (r *UserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return errs.ErrAlreadyExists
	}
	r.users[u.ID] = *u
	return nil
}

// GetByID returns a copy of the stored user.
func (r *UserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

// TouchSignIn bumps LastSignInAt, creating a non-anonymous user on first sight.
func (r *UserRepo) TouchSignIn(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	u, ok := r.users[id]
	if !ok {
		u = model.User{ID: id, CreatedAt: now}
	}
	u.LastSignInAt = now
	r.users[id] = u
	return &u, nil
}

type storedDoc struct {
	id      string
	owner   string
	body    []byte
	created time.Time
	seq     int64
}

// DocumentRepo is an in-memory DocumentRepository.
type DocumentRepo struct {
	mu     sync.RWMutex
	seq    int64
	ids    map[string]struct{}
	byPath map[string][]storedDoc
}

// NewDocumentRepo constructs an empty document repository.
func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{ids: map[string]struct{}{}, byPath: map[string][]storedDoc{}}
}

// Append stores doc and assigns the next global sequence number.
func (r *DocumentRepo) Append(_ context.Context, owner string, doc *model.Document) error {
	body, err := convert.FieldsToJSON(doc.Fields)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[doc.ID]; ok {
		return errs.ErrAlreadyExists
	}
	r.seq++
	r.ids[doc.ID] = struct{}{}
	r.byPath[doc.Path] = append(r.byPath[doc.Path], storedDoc{
		id: doc.ID, owner: owner, body: body, created: doc.CreateTime, seq: r.seq,
	})
	doc.Seq = r.seq
	return nil
}

// List decodes every document of the collection at path in sequence order.
func (r *DocumentRepo) List(_ context.Context, path string) ([]model.Document, error) {
	r.mu.RLock()
	stored := r.byPath[path]
	r.mu.RUnlock()

	out := make([]model.Document, 0, len(stored))
	for _, s := range stored {
		f, err := convert.FieldsFromJSON(s.body)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", s.id, err)
		}
		out = append(out, model.Document{ID: s.id, Path: path, Fields: f, CreateTime: s.created, Seq: s.seq})
	}
	return out, nil
}
