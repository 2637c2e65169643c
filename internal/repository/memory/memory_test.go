package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/repository"
)

var (
	_ repository.UserRepository     = (*UserRepo)(nil)
	_ repository.DocumentRepository = (*DocumentRepo)(nil)
)

func TestUserRepo_CreateGetTouch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewUserRepo()

	require.NoError(t, r.Create(ctx, &model.User{ID: "anon-1", Anonymous: true}))
	require.ErrorIs(t, r.Create(ctx, &model.User{ID: "anon-1"}), errs.ErrAlreadyExists)

	u, err := r.GetByID(ctx, "anon-1")
	require.NoError(t, err)
	require.True(t, u.Anonymous)

	_, err = r.GetByID(ctx, "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)

	u, err = r.TouchSignIn(ctx, "partner")
	require.NoError(t, err)
	require.False(t, u.Anonymous)
	require.False(t, u.CreatedAt.IsZero())

	u, err = r.TouchSignIn(ctx, "anon-1")
	require.NoError(t, err)
	require.True(t, u.Anonymous, "touch must not flip the anonymous flag")
}

func TestDocumentRepo_AppendList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewDocumentRepo()
	path := "artifacts/app/users/u/memories"
	at := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	d1 := &model.Document{ID: "d1", Path: path, Fields: model.Fields{"description": "one", "createdAt": at}}
	d2 := &model.Document{ID: "d2", Path: path, Fields: model.Fields{"description": "two"}}
	other := &model.Document{ID: "d3", Path: "artifacts/app/users/v/memories", Fields: model.Fields{}}
	require.NoError(t, r.Append(ctx, "u", d1))
	require.NoError(t, r.Append(ctx, "u", d2))
	require.NoError(t, r.Append(ctx, "v", other))
	require.Less(t, d1.Seq, d2.Seq)
	require.ErrorIs(t, r.Append(ctx, "u", &model.Document{ID: "d1", Path: path}), errs.ErrAlreadyExists)

	docs, err := r.List(ctx, path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "d1", docs[0].ID)
	require.True(t, docs[0].Fields["createdAt"].(time.Time).Equal(at))

	// reads are detached from later mutation of the caller's map
	d2.Fields["description"] = "mutated"
	docs, _ = r.List(ctx, path)
	require.Equal(t, "two", docs[1].Fields["description"])

	empty, err := r.List(ctx, "artifacts/app/users/nobody/projects")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestDocumentRepo_ConcurrentAppends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := NewDocumentRepo()
	path := "artifacts/app/users/u/projects"

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = r.Append(ctx, "u", &model.Document{ID: id, Path: path, Fields: model.Fields{"i": i}})
		}(i)
	}
	wg.Wait()

	docs, err := r.List(ctx, path)
	require.NoError(t, err)
	require.Len(t, docs, 20)
	for i := 1; i < len(docs); i++ {
		require.Less(t, docs[i-1].Seq, docs[i].Seq)
	}
}
