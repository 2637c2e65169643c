package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/forever-vivid/internal/broker"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/paths"
	"github.com/and161185/forever-vivid/internal/repository"
)

// DocumentService appends to and observes user-scoped collections.
type DocumentService interface {
	// Append stores fields as a new document in the collection at path.
	Append(ctx context.Context, caller model.Identity, path string, fields model.Fields) (model.Document, error)
	// List returns the collection at path in store order.
	List(ctx context.Context, caller model.Identity, path string) ([]model.Document, error)
	// Watch notifies after every change to the collection at path until cancel is called.
	Watch(ctx context.Context, caller model.Identity, path string) (<-chan struct{}, func(), error)
}

type DocumentServiceImpl struct {
	repo      repository.DocumentRepository
	bus       *broker.Broker
	maxFields int
	now       func() time.Time
}

// NewDocumentService constructs DocumentService with a per-document field limit.
func NewDocumentService(repo repository.DocumentRepository, bus *broker.Broker, maxFields int) *DocumentServiceImpl {
	if maxFields <= 0 {
		maxFields = 64
	}
	return &DocumentServiceImpl{repo: repo, bus: bus, maxFields: maxFields, now: time.Now}
}

// authorize requires path to be a known collection owned by caller.
func authorize(caller model.Identity, path string) error {
	if caller.UID == "" {
		return errs.ErrUnauthorized
	}
	p, err := paths.Parse(path)
	if err != nil {
		return err
	}
	if p.UID != caller.UID {
		return fmt.Errorf("%w: %s", errs.ErrPermissionDenied, path)
	}
	return nil
}

// Append resolves server timestamps with the server clock, assigns an id and notifies listeners.
func (s *DocumentServiceImpl) Append(ctx context.Context, caller model.Identity, path string, fields model.Fields) (model.Document, error) {
	if err := authorize(caller, path); err != nil {
		return model.Document{}, err
	}
	if len(fields) > s.maxFields {
		return model.Document{}, fmt.Errorf("%w: %d fields (max %d)", errs.ErrInvalidArgument, len(fields), s.maxFields)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Document{}, err
	}
	// Postgres keeps microseconds.
	now := s.now().UTC().Truncate(time.Microsecond)
	if fields == nil {
		fields = model.Fields{}
	}
	doc := model.Document{
		ID:         id.String(),
		Path:       path,
		Fields:     model.ResolveServerTimestamps(fields, now),
		CreateTime: now,
	}
	if err := s.repo.Append(ctx, caller.UID, &doc); err != nil {
		return model.Document{}, err
	}
	s.bus.Publish(path)
	return doc, nil
}

// List returns the collection at path ordered by sequence.
func (s *DocumentServiceImpl) List(ctx context.Context, caller model.Identity, path string) ([]model.Document, error) {
	if err := authorize(caller, path); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, path)
}

// Watch subscribes to change notifications for path.
func (s *DocumentServiceImpl) Watch(_ context.Context, caller model.Identity, path string) (<-chan struct{}, func(), error) {
	if err := authorize(caller, path); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.bus.Subscribe(path)
	return ch, cancel, nil
}
