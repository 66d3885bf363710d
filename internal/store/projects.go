package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/christopherklint97/gigcal/internal/project"
)

var ErrNotFound = errors.New("not found")

const projectColumns = `id, title, description, status, priority, event_type, start_date, end_date,
	venue_address, color, crew_count, filled_positions, client_id, manager_id`

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// InsertProject creates p, or replaces the project with the same ID.
func (db *DB) InsertProject(ctx context.Context, p *project.Project) error {
	var end sql.NullString
	if p.EndDate != nil {
		end = nullString(formatTime(*p.EndDate))
	}
	status, priority := p.Status, p.Priority
	if status == "" {
		status = "planned"
	}
	if priority == "" {
		priority = "medium"
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			status = excluded.status, priority = excluded.priority,
			event_type = excluded.event_type, start_date = excluded.start_date,
			end_date = excluded.end_date, venue_address = excluded.venue_address,
			color = excluded.color, crew_count = excluded.crew_count,
			filled_positions = excluded.filled_positions, client_id = excluded.client_id,
			manager_id = excluded.manager_id, deleted_at = NULL`,
		p.ID, p.Title, nullString(p.Description), status, priority, nullString(p.EventType),
		formatTime(p.StartDate), end,
		nullString(p.VenueAddress), nullString(p.Color), p.CrewCount, p.FilledPositions,
		nullString(p.ClientID), nullString(p.ManagerID),
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

// GetProject returns a non-deleted project by ID.
func (db *DB) GetProject(ctx context.Context, id string) (*project.Project, error) {
	projects, err := db.queryProjects(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &projects[0], nil
}

// SoftDeleteProject marks a project deleted and returns it as it was.
func (db *DB) SoftDeleteProject(ctx context.Context, id string) (*project.Project, error) {
	p, err := db.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx,
		"UPDATE projects SET deleted_at = ? WHERE id = ?",
		formatTime(time.Now()), id,
	); err != nil {
		return nil, fmt.Errorf("deleting project: %w", err)
	}
	return p, nil
}

// FetchProjects returns non-deleted projects whose span touches [start, end],
// ordered by start date.
func (db *DB) FetchProjects(ctx context.Context, start, end time.Time) ([]project.Project, error) {
	return db.queryProjects(ctx,
		`SELECT `+projectColumns+`
		 FROM projects
		 WHERE deleted_at IS NULL
		   AND start_date <= ?
		   AND COALESCE(end_date, start_date) >= ?
		 ORDER BY start_date ASC`,
		formatTime(end), formatTime(start),
	)
}

func (db *DB) UpsertUser(ctx context.Context, u project.User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, company_name) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name, email = excluded.email, company_name = excluded.company_name`,
		u.ID, u.FullName, nullString(u.Email), nullString(u.CompanyName),
	)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}

// FetchUsers returns the users with the given IDs.
func (db *DB) FetchUsers(ctx context.Context, ids []string) ([]project.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := db.QueryContext(ctx,
		`SELECT id, full_name, email, company_name FROM users WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []project.User
	for rows.Next() {
		var u project.User
		var email, company sql.NullString
		if err := rows.Scan(&u.ID, &u.FullName, &email, &company); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Email = email.String
		u.CompanyName = company.String
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *DB) queryProjects(ctx context.Context, query string, args ...any) ([]project.Project, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var p project.Project
		var description, eventType, venue, color, clientID, managerID, end sql.NullString
		var startStr string

		if err := rows.Scan(
			&p.ID, &p.Title, &description, &p.Status, &p.Priority, &eventType, &startStr, &end,
			&venue, &color, &p.CrewCount, &p.FilledPositions, &clientID, &managerID,
		); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}

		p.Description = description.String
		p.EventType = eventType.String
		p.VenueAddress = venue.String
		p.Color = color.String
		p.ClientID = clientID.String
		p.ManagerID = managerID.String

		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			p.StartDate = t
		}
		if end.Valid {
			if t, err := time.Parse(time.RFC3339, end.String); err == nil {
				p.EndDate = &t
			}
		}

		projects = append(projects, p)
	}

	return projects, rows.Err()
}
