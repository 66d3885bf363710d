package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/gigcal/internal/calendar"
	"github.com/christopherklint97/gigcal/internal/monthcache"
	"github.com/christopherklint97/gigcal/internal/project"
	"github.com/christopherklint97/gigcal/internal/store"
)

func newTestEnv(t *testing.T) *env {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "gigcal.db"))
	require.NoError(t, err)

	fetcher := calendar.NewFetcher(db, nil, nil)
	cache := monthcache.New(fetcher.Fetch, monthcache.WithPrefetchMonths(0))
	e := &env{db: db, fetcher: fetcher, cache: cache}
	t.Cleanup(e.Close)
	return e
}

func TestLoadMonth_DirectBypassesCache(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	m := project.MonthOf(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.Local))

	require.NoError(t, e.db.InsertProject(ctx, &project.Project{
		ID:        "p1",
		Title:     "Ribena roadshow",
		EventType: "ribena",
		StartDate: time.Date(2025, time.March, 3, 9, 0, 0, 0, time.Local),
	}))

	got, err := e.loadMonth(ctx, m, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, project.DefaultColors["ribena"], got[0].Color)
	assert.Equal(t, monthcache.Absent, e.cache.StateOf(m.Start()))

	got, err = e.loadMonth(ctx, m, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, monthcache.Fresh, e.cache.StateOf(m.Start()))
}

func TestLoadMonth_DirectFailureIsEmpty(t *testing.T) {
	e := newTestEnv(t)
	m := project.MonthOf(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.Local))
	require.NoError(t, e.db.Close())

	got, err := e.loadMonth(context.Background(), m, true)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = e.loadMonth(context.Background(), m, false)
	assert.Error(t, err)
}
