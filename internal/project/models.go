package project

import "time"

// Project is a scheduled gig as stored by the remote data source.
type Project struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status,omitempty"`
	Priority        string     `json:"priority,omitempty"`
	EventType       string     `json:"event_type,omitempty"`
	StartDate       time.Time  `json:"start_date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	VenueAddress    string     `json:"venue_address,omitempty"`
	Color           string     `json:"color,omitempty"`
	CrewCount       int        `json:"crew_count,omitempty"`
	FilledPositions int        `json:"filled_positions,omitempty"`
	ClientID        string     `json:"client_id,omitempty"`
	ManagerID       string     `json:"manager_id,omitempty"`

	Client  *User `json:"-"` // resolved from ClientID
	Manager *User `json:"-"` // resolved from ManagerID
}

// User is a client or manager referenced by a project.
type User struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
}

// Span returns the start and end of the project. A project without an end
// date ends when it starts.
func (p Project) Span() (time.Time, time.Time) {
	if p.EndDate == nil || p.EndDate.IsZero() {
		return p.StartDate, p.StartDate
	}
	return p.StartDate, *p.EndDate
}

// Overlaps reports whether the project belongs to month m: it starts within
// the month, ends within the month, or spans all of it.
func Overlaps(p Project, m Month) bool {
	start, end := p.Span()
	ms, me := m.Start(), m.End()

	within := func(t time.Time) bool {
		return !t.Before(ms) && !t.After(me)
	}

	return within(start) ||
		within(end) ||
		(!start.After(ms) && !end.Before(me))
}

// Unique drops projects whose ID was already seen. The first occurrence is
// kept and the order is preserved.
func Unique(projects []Project) []Project {
	seen := make(map[string]struct{}, len(projects))
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
