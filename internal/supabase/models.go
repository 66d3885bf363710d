package supabase

import (
	"fmt"
	"time"

	"github.com/christopherklint97/gigcal/internal/project"
)

// projectRow is a row of the projects table as PostgREST returns it. Dates
// arrive either as timestamps or as plain dates depending on the column type.
type projectRow struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	Status          string  `json:"status"`
	Priority        string  `json:"priority"`
	EventType       *string `json:"event_type"`
	StartDate       string  `json:"start_date"`
	EndDate         *string `json:"end_date"`
	VenueAddress    *string `json:"venue_address"`
	Color           *string `json:"color"`
	CrewCount       *int    `json:"crew_count"`
	FilledPositions *int    `json:"filled_positions"`
	ClientID        *string `json:"client_id"`
	ManagerID       *string `json:"manager_id"`
}

func (r projectRow) toProject() (project.Project, error) {
	start, err := parseTimestamp(r.StartDate)
	if err != nil {
		return project.Project{}, err
	}

	p := project.Project{
		ID:           r.ID,
		Title:        r.Title,
		Description:  deref(r.Description),
		Status:       r.Status,
		Priority:     r.Priority,
		EventType:    deref(r.EventType),
		StartDate:    start,
		VenueAddress: deref(r.VenueAddress),
		Color:        deref(r.Color),
		ClientID:     deref(r.ClientID),
		ManagerID:    deref(r.ManagerID),
	}
	if r.CrewCount != nil {
		p.CrewCount = *r.CrewCount
	}
	if r.FilledPositions != nil {
		p.FilledPositions = *r.FilledPositions
	}
	if r.EndDate != nil && *r.EndDate != "" {
		end, err := parseTimestamp(*r.EndDate)
		if err != nil {
			return project.Project{}, err
		}
		p.EndDate = &end
	}
	return p, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05.999999-07",
		"2006-01-02",
	} {
		var (
			t   time.Time
			err error
		)
		if layout == "2006-01-02" {
			t, err = time.ParseInLocation(layout, s, time.Local)
		} else {
			t, err = time.Parse(layout, s)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
