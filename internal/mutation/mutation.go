// Package mutation appends new memory and project records for the signed-in user.
package mutation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/session"
)

// Placeholder media for freshly created records.
const (
	NewMemoryImageURL     = "https://via.placeholder.com/100x100?text=NewMem"
	newMemoryFullImageFmt = "https://via.placeholder.com/600x400?text=Uploaded+Memory+%d"
	NewProjectCoverURL    = "https://via.placeholder.com/100x130?text=NewProject"
	NewProjectThumbURL    = "https://via.placeholder.com/180x100?text=NewFilm"
	NewBookPageURL        = "https://via.placeholder.com/60x60"

	// NewProjectProgress is the progress a project starts with.
	NewProjectProgress = 10
)

// Error is a failed submission. Unwrap exposes the cause.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Receipt identifies an appended record.
type Receipt struct {
	ID   string
	Path string
}

// MemoryDraft carries what the user supplied for a new memory. Zero values take defaults.
type MemoryDraft struct {
	Description string
	Tags        []string
	HasMusic    bool
	Ordinal     int // position of the new memory in the feed, used in the placeholder image
}

// ProjectDraft carries what the user supplied for a new project.
type ProjectDraft struct {
	Type      model.ProjectType
	Title     string
	MemoryIDs []string
}

// NewMemory builds the stored fields of a new memory at now.
func NewMemory(d MemoryDraft, now time.Time) model.Fields {
	desc := d.Description
	if desc == "" {
		desc = "New upload at " + now.Format("15:04:05")
	}
	tags := d.Tags
	if len(tags) == 0 {
		tags = []string{"New", "Draft"}
	}
	ordinal := d.Ordinal
	if ordinal <= 0 {
		ordinal = 1
	}
	return model.Fields{
		model.FieldDate:         now.Format(model.LongDateLayout),
		model.FieldDescription:  desc,
		model.FieldImageURL:     NewMemoryImageURL,
		model.FieldFullImageURL: fmt.Sprintf(newMemoryFullImageFmt, ordinal),
		model.FieldTags:         append([]string{}, tags...),
		model.FieldHasMusic:     d.HasMusic,
		model.FieldCreatedAt:    model.ServerTimestamp,
	}
}

// NewProject builds the stored fields of a new project at now. d.Type must be valid.
func NewProject(d ProjectDraft, now time.Time) model.Fields {
	title := d.Title
	if title == "" {
		kind := string(d.Type)
		if kind != "" {
			kind = strings.ToUpper(kind[:1]) + kind[1:]
		}
		title = fmt.Sprintf("New %s project (%s)", kind, now.Format(model.ShortDateLayout))
	}
	images := []string{}
	if d.Type == model.ProjectBook {
		images = []string{NewBookPageURL, NewBookPageURL}
	}
	ids := []string{}
	seen := make(map[string]struct{}, len(d.MemoryIDs))
	for _, id := range d.MemoryIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return model.Fields{
		model.FieldType:       string(d.Type),
		model.FieldTitle:      title,
		model.FieldCover:      NewProjectCoverURL,
		model.FieldThumbnail:  NewProjectThumbURL,
		model.FieldImages:     images,
		model.FieldProgress:   NewProjectProgress,
		model.FieldLastEdited: now.Format(model.LongDateLayout),
		model.FieldMemoryIDs:  ids,
		model.FieldCreatedAt:  model.ServerTimestamp,
	}
}

// Submitter writes records for one session. It does not re-subscribe: live
// subscriptions pick the new record up from the store.
type Submitter struct {
	sess  session.Session
	appID string
	log   *zap.Logger
	now   func() time.Time
}

// New builds a Submitter for sess in application appID.
func New(sess session.Session, appID string, log *zap.Logger) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{sess: sess, appID: appID, log: log, now: time.Now}
}

// AddMemory appends a new memory.
func (s *Submitter) AddMemory(ctx context.Context, d MemoryDraft) (Receipt, error) {
	return s.submit(ctx, "add memory", model.CollectionMemories, func(now time.Time) (model.Fields, error) {
		return NewMemory(d, now), nil
	})
}

// StartProject appends a new project.
func (s *Submitter) StartProject(ctx context.Context, d ProjectDraft) (Receipt, error) {
	return s.submit(ctx, "start project", model.CollectionProjects, func(now time.Time) (model.Fields, error) {
		if !d.Type.Valid() {
			return nil, fmt.Errorf("%w: project type %q", errs.ErrInvalidArgument, d.Type)
		}
		return NewProject(d, now), nil
	})
}

func (s *Submitter) submit(ctx context.Context, op string, c model.Collection, build func(time.Time) (model.Fields, error)) (Receipt, error) {
	path, err := s.sess.CollectionPath(s.appID, c)
	if err != nil {
		s.log.Error(op+" refused", zap.Error(err))
		return Receipt{}, &Error{Op: op, Err: err}
	}
	fields, err := build(s.now())
	if err != nil {
		return Receipt{}, &Error{Op: op, Path: path, Err: err}
	}
	id, err := s.sess.Store.Append(ctx, path, fields)
	if err != nil {
		s.log.Error(op+" failed", zap.String("path", path), zap.Error(err))
		return Receipt{}, &Error{Op: op, Path: path, Err: err}
	}
	s.log.Debug(op, zap.String("path", path), zap.String("id", id))
	return Receipt{ID: id, Path: path}, nil
}
