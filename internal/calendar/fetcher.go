package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/gigcal/internal/project"
)

// Source is the remote store projects are read from.
type Source interface {
	// FetchProjects returns non-deleted projects touching [start, end],
	// ordered by start date.
	FetchProjects(ctx context.Context, start, end time.Time) ([]project.Project, error)
	// FetchUsers returns the users with the given IDs. Unknown IDs are ignored.
	FetchUsers(ctx context.Context, ids []string) ([]project.User, error)
}

// Fetcher loads the projects of one month and prepares them for display.
type Fetcher struct {
	source Source
	colors map[string]string
	logger *slog.Logger
}

func NewFetcher(source Source, colors map[string]string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if colors == nil {
		colors = project.DefaultColors
	}
	return &Fetcher{source: source, colors: colors, logger: logger}
}

// Fetch returns the projects overlapping month m, de-duplicated by ID, with
// display colors and client/manager relations filled in.
//
// The query covers m and the following month so multi-day projects crossing
// the boundary are seen. An error from the primary query is returned; errors
// from the relation lookups are logged and leave the relation unset.
func (f *Fetcher) Fetch(ctx context.Context, m project.Month) ([]project.Project, error) {
	start, end := m.Start(), m.Add(1).End()

	rows, err := f.source.FetchProjects(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching projects for %s: %w", m, err)
	}

	seen := make(map[string]struct{}, len(rows))
	projects := make([]project.Project, 0, len(rows))
	for _, p := range rows {
		if !project.Overlaps(p, m) {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		p.Color = project.ColorFor(p, f.colors)
		projects = append(projects, p)
	}

	f.attachUsers(ctx, projects, "client",
		func(p *project.Project) string { return p.ClientID },
		func(p *project.Project, u *project.User) { p.Client = u })
	f.attachUsers(ctx, projects, "manager",
		func(p *project.Project) string { return p.ManagerID },
		func(p *project.Project, u *project.User) { p.Manager = u })

	f.logger.Debug("month fetched", "month", m.String(), "rows", len(rows), "projects", len(projects))
	return projects, nil
}

// FetchOrEmpty is Fetch for callers that have no use for the error: failures
// are logged and an empty slice is returned.
func (f *Fetcher) FetchOrEmpty(ctx context.Context, m project.Month) []project.Project {
	projects, err := f.Fetch(ctx, m)
	if err != nil {
		f.logger.Error("month fetch failed", "month", m.String(), "error", err)
		return []project.Project{}
	}
	return projects
}

func (f *Fetcher) attachUsers(
	ctx context.Context,
	projects []project.Project,
	relation string,
	idOf func(*project.Project) string,
	set func(*project.Project, *project.User),
) {
	var ids []string
	seen := make(map[string]struct{})
	for i := range projects {
		id := idOf(&projects[i])
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}

	users, err := f.source.FetchUsers(ctx, ids)
	if err != nil {
		f.logger.Warn("relation lookup failed", "relation", relation, "ids", len(ids), "error", err)
		return
	}

	byID := make(map[string]*project.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range projects {
		if u, ok := byID[idOf(&projects[i])]; ok {
			set(&projects[i], u)
		}
	}
}
