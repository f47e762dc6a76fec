package kvstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papapumpkin/gantry/internal/task"
	"github.com/papapumpkin/gantry/internal/taskfile"
)

const project = `[
  {"id": "A", "name": "Design", "start": "2024-01-01", "end": "2024-01-05"},
  {"id": "B", "name": "Build", "start": "2024-01-06", "duration": 4, "dependencies": [{"taskId": "A", "lag": 2}]}
]`

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "gantry.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTasks(t *testing.T) *task.Store {
	t.Helper()
	store, err := taskfile.Decode(strings.NewReader(project), taskfile.JSON)
	require.NoError(t, err)
	return store
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "plan", sampleTasks(t)))

	got, err := s.Load(ctx, "plan")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got.IDs())
	b := got.Get("B")
	require.NotNil(t, b)
	require.Len(t, b.Dependencies, 1)
	assert.Equal(t, "A", b.Dependencies[0].TaskID)
	assert.Equal(t, 2, b.Dependencies[0].Lag)
	assert.Equal(t, 4, b.Duration)
}

func TestSave_Overwrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "plan", sampleTasks(t)))
	smaller := sampleTasks(t)
	_, err := smaller.Delete("B", false)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "plan", smaller))

	got, err := s.Load(ctx, "plan")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.IDs())

	metas, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 1, metas[0].TaskCount)
}

func TestList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := openTestStore(t, WithClock(func() time.Time { return stamp }))

	metas, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, metas)

	require.NoError(t, s.Save(ctx, "zeta", sampleTasks(t)))
	require.NoError(t, s.Save(ctx, "alpha", sampleTasks(t)))

	metas, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "alpha", metas[0].Key)
	assert.Equal(t, "zeta", metas[1].Key)
	assert.Equal(t, 2, metas[0].TaskCount)
	assert.True(t, metas[0].UpdatedAt.Equal(stamp))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "plan", sampleTasks(t)))
	require.NoError(t, s.Delete(ctx, "plan"))

	_, err := s.Load(ctx, "plan")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "plan"), ErrNotFound)
}

func TestEmptyKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	assert.ErrorIs(t, s.Save(ctx, "  ", sampleTasks(t)), ErrEmptyKey)
	_, err := s.Load(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrEmptyKey)
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gantry.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "plan", sampleTasks(t)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "plan")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}
