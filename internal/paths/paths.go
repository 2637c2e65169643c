// Package paths derives and parses user-scoped collection paths of the form
// artifacts/{appID}/users/{uid}/{collection}.
package paths

import (
	"fmt"
	"strings"

	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
)

const (
	rootSegment  = "artifacts"
	usersSegment = "users"
	maxSegment   = 128
)

// CollectionPath is a parsed user-scoped collection path.
type CollectionPath struct {
	AppID      string
	UID        string
	Collection model.Collection
}

// String renders the path.
func (p CollectionPath) String() string {
	return strings.Join([]string{rootSegment, p.AppID, usersSegment, p.UID, string(p.Collection)}, "/")
}

// UserCollection builds the path for collection c of user uid in application appID.
func UserCollection(appID, uid string, c model.Collection) (string, error) {
	p := CollectionPath{AppID: appID, UID: uid, Collection: c}
	if err := p.validate(); err != nil {
		return "", err
	}
	return p.String(), nil
}

// Parse splits a path built by UserCollection.
func Parse(path string) (CollectionPath, error) {
	parts := strings.Split(path, "/")
	if len(parts) != 5 || parts[0] != rootSegment || parts[2] != usersSegment {
		return CollectionPath{}, fmt.Errorf("%w: malformed collection path %q", errs.ErrInvalidArgument, path)
	}
	p := CollectionPath{AppID: parts[1], UID: parts[3], Collection: model.Collection(parts[4])}
	if err := p.validate(); err != nil {
		return CollectionPath{}, err
	}
	return p, nil
}

func (p CollectionPath) validate() error {
	if err := segment("app id", p.AppID); err != nil {
		return err
	}
	if err := segment("uid", p.UID); err != nil {
		return err
	}
	if !p.Collection.Valid() {
		return fmt.Errorf("%w: unknown collection %q", errs.ErrInvalidArgument, p.Collection)
	}
	return nil
}

func segment(name, v string) error {
	switch {
	case v == "":
		return fmt.Errorf("%w: empty %s", errs.ErrInvalidArgument, name)
	case len(v) > maxSegment:
		return fmt.Errorf("%w: %s too long", errs.ErrInvalidArgument, name)
	case strings.ContainsAny(v, "/\x00"), v == ".", v == "..":
		return fmt.Errorf("%w: bad %s %q", errs.ErrInvalidArgument, name, v)
	}
	return nil
}
