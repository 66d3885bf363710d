package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/gigcal/internal/monthcache"
	"github.com/christopherklint97/gigcal/internal/project"
)

type fakeSource struct {
	data        map[string][]project.Project
	err         error
	invalidated []string
}

func (f *fakeSource) Month(_ context.Context, t time.Time) ([]project.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[project.MonthOf(t).Key()], nil
}

func (f *fakeSource) Invalidate(t time.Time) {
	f.invalidated = append(f.invalidated, project.MonthOf(t).Key())
}

func (f *fakeSource) Stats() monthcache.Stats { return monthcache.Stats{} }

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var march = project.MonthOf(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

func loaded(t *testing.T, a *App) {
	t.Helper()
	msg := a.load(a.month)()
	_, _ = a.Update(msg)
}

func TestApp_PagesMonths(t *testing.T) {
	src := &fakeSource{data: map[string][]project.Project{
		"2025-4": {{ID: "p1", Title: "April roadshow", StartDate: time.Date(2025, time.April, 3, 9, 0, 0, 0, time.UTC)}},
	}}
	a := NewApp(src, march)
	require.NotNil(t, a.Init())
	loaded(t, a)
	assert.False(t, a.loading)
	assert.Contains(t, a.View(), "No projects this month")

	_, cmd := a.Update(key("right"))
	require.NotNil(t, cmd)
	assert.Equal(t, "2025-04", a.Month().String())
	assert.True(t, a.loading)

	loaded(t, a)
	assert.Contains(t, a.View(), "April roadshow")

	a.Update(key("h"))
	a.Update(key("left"))
	assert.Equal(t, "2025-02", a.Month().String())
}

func TestApp_IgnoresResultsForOtherMonths(t *testing.T) {
	src := &fakeSource{}
	a := NewApp(src, march)
	a.Update(key("l"))

	_, _ = a.Update(monthLoadedMsg{month: march, projects: []project.Project{{ID: "old", Title: "Stale"}}})
	assert.True(t, a.loading)
	assert.Empty(t, a.list.projects)
}

func TestApp_ReloadInvalidatesMonth(t *testing.T) {
	src := &fakeSource{}
	a := NewApp(src, march)
	loaded(t, a)

	a.Update(key("r"))
	assert.Equal(t, []string{"2025-3"}, src.invalidated)
	assert.True(t, a.loading)
}

func TestApp_ReloadIgnoresEarlierLoadOfSameMonth(t *testing.T) {
	src := &fakeSource{data: map[string][]project.Project{
		"2025-3": {{ID: "old", Title: "Before edit"}},
	}}
	a := NewApp(src, march)
	a.Init()
	earlier := a.load(a.month)()

	src.data["2025-3"] = []project.Project{{ID: "new", Title: "After edit"}}
	a.Update(key("r"))
	reloaded := a.load(a.month)()

	_, _ = a.Update(earlier)
	assert.True(t, a.loading)
	assert.Empty(t, a.list.projects)

	_, _ = a.Update(reloaded)
	assert.False(t, a.loading)
	assert.Contains(t, a.View(), "After edit")
	assert.NotContains(t, a.View(), "Before edit")
}

func TestApp_ShowsErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("remote unavailable")}
	a := NewApp(src, march)
	loaded(t, a)

	view := a.View()
	assert.Contains(t, view, "remote unavailable")
	assert.Contains(t, view, "Press r to retry")
}

func TestApp_FilterProjects(t *testing.T) {
	src := &fakeSource{data: map[string][]project.Project{
		"2025-3": {
			{ID: "a", Title: "Ribena sampling", StartDate: time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)},
			{ID: "b", Title: "Wedding crew", StartDate: time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)},
		},
	}}
	a := NewApp(src, march)
	loaded(t, a)
	require.Len(t, a.list.filtered, 2)

	a.Update(key("/"))
	require.True(t, a.list.filtering)
	for _, r := range "wed" {
		a.Update(key(string(r)))
	}
	require.Len(t, a.list.filtered, 1)
	p, ok := a.list.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", p.ID)

	a.Update(key("esc"))
	assert.False(t, a.list.filtering)
	assert.Len(t, a.list.filtered, 2)
}
