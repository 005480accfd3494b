package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/testutil"
)

func TestResolveInsertThenLink(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	r := NewResolver(stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))
	fields := domain.CanonicalFields{Title: "A", Content: "X"}

	first, err := r.Resolve(ctx, store, fields, "api", "1")
	require.NoError(t, err)
	assert.Equal(t, ActionInsert, first.Action)
	assert.Equal(t, EntityIDFor(Fingerprint("A", "X")), first.EntityID)

	second, err := r.Resolve(ctx, store, domain.CanonicalFields{Title: " a ", Content: "x"}, "csv", "c1")
	require.NoError(t, err)
	assert.Equal(t, ActionLink, second.Action)
	assert.Equal(t, first.EntityID, second.EntityID)

	members, err := store.Canonical.ListByEntity(ctx, first.EntityID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "api", members[0].Source)
	assert.Equal(t, "csv", members[1].Source)
}

func TestResolveUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	r := NewResolver(stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Minute))
	fields := domain.CanonicalFields{Title: "A", Content: "X"}

	first, err := r.Resolve(ctx, store, fields, "api", "1")
	require.NoError(t, err)
	again, err := r.Resolve(ctx, store, fields, "api", "1")
	require.NoError(t, err)

	assert.Equal(t, ActionUpdate, again.Action)
	assert.Equal(t, first.EntityID, again.EntityID)
	assert.False(t, again.Reassigned())

	n, err := store.Canonical.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Canonical.FindBySource(ctx, "api", "1")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt), "updated_at advances")
	assert.True(t, got.CreatedAt.Equal(first.Record.CreatedAt), "created_at kept")
}

func TestResolveUpdateOverwritesFields(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	r := NewResolver(nil)

	_, err := r.Resolve(ctx, store, domain.CanonicalFields{Title: "A", Content: "X"}, "api", "1")
	require.NoError(t, err)
	res, err := r.Resolve(ctx, store, domain.CanonicalFields{Title: "A v2", Content: "X", Author: "bob"}, "api", "1")
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, res.Action)

	got, err := store.Canonical.FindBySource(ctx, "api", "1")
	require.NoError(t, err)
	assert.Equal(t, "A v2", got.Data.Title)
	assert.Equal(t, "bob", got.Data.Author)
	assert.Equal(t, Fingerprint("A v2", "X"), got.ContentFingerprint)
	assert.Equal(t, EntityIDFor(Fingerprint("A", "X")), got.EntityID, "entity id is stable across edits")
}

func TestResolveUpdateAdoptsCandidateEntity(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	r := NewResolver(stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second))

	a, err := r.Resolve(ctx, store, domain.CanonicalFields{Title: "A", Content: "X"}, "api", "1")
	require.NoError(t, err)
	b, err := r.Resolve(ctx, store, domain.CanonicalFields{Title: "B", Content: "Y"}, "csv", "c1")
	require.NoError(t, err)
	require.NotEqual(t, a.EntityID, b.EntityID)
	// a second member of b's cluster
	_, err = r.Resolve(ctx, store, domain.CanonicalFields{Title: "B", Content: "Y"}, "feed", "f1")
	require.NoError(t, err)

	// c1 is edited to match api/1 and moves into its cluster
	moved, err := r.Resolve(ctx, store, domain.CanonicalFields{Title: "A", Content: "X"}, "csv", "c1")
	require.NoError(t, err)
	assert.Equal(t, ActionUpdate, moved.Action)
	assert.Equal(t, a.EntityID, moved.EntityID)
	assert.Equal(t, b.EntityID, moved.PreviousEntityID)
	assert.True(t, moved.Reassigned())

	// the rest of the old cluster keeps its id
	rest, err := store.Canonical.ListByEntity(ctx, b.EntityID)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "feed", rest[0].Source)
}
