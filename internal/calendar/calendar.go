package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	ical "github.com/emersion/go-ical"

	"github.com/christopherklint97/gigcal/internal/project"
)

// LoadICS reads projects from an iCalendar URL or file path.
func LoadICS(ctx context.Context, source string) ([]project.Project, error) {
	var r io.ReadCloser

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetching calendar: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("calendar fetch returned status %d", resp.StatusCode)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("opening calendar file: %w", err)
		}
		r = f
	}
	defer r.Close()

	return ParseICS(r)
}

// ParseICS converts every VEVENT with a UID and a start into a project.
// UID becomes the ID, LOCATION the venue and the first CATEGORIES value the
// event type.
func ParseICS(r io.Reader) ([]project.Project, error) {
	dec := ical.NewDecoder(r)
	var projects []project.Project

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			uid, _ := event.Props.Text(ical.PropUID)
			if uid == "" {
				continue
			}
			start, err := event.DateTimeStart(nil)
			if err != nil || start.IsZero() {
				continue // skip malformed events
			}

			p := project.Project{
				ID:        uid,
				StartDate: start,
				Status:    "planned",
			}
			if end, err := event.DateTimeEnd(nil); err == nil && !end.IsZero() && end.After(start) {
				p.EndDate = &end
			}
			p.Title, _ = event.Props.Text(ical.PropSummary)
			p.Description, _ = event.Props.Text(ical.PropDescription)
			p.VenueAddress, _ = event.Props.Text(ical.PropLocation)
			if prop := event.Props.Get(ical.PropCategories); prop != nil {
				first, _, _ := strings.Cut(prop.Value, ",")
				p.EventType = strings.ToLower(strings.TrimSpace(first))
			}

			projects = append(projects, p)
		}
	}

	return projects, nil
}

// GroupByDay groups projects by start date (YYYY-MM-DD in local time).
func GroupByDay(projects []project.Project) map[string][]project.Project {
	grouped := make(map[string][]project.Project)
	for _, p := range projects {
		key := p.StartDate.Local().Format("2006-01-02")
		grouped[key] = append(grouped[key], p)
	}
	return grouped
}
