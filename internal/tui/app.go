package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/gigcal/internal/monthcache"
	"github.com/christopherklint97/gigcal/internal/project"
)

// MonthSource is the part of the month cache the browser needs.
type MonthSource interface {
	Month(ctx context.Context, t time.Time) ([]project.Project, error)
	Invalidate(t time.Time)
	Stats() monthcache.Stats
}

type monthLoadedMsg struct {
	seq      int
	month    project.Month
	projects []project.Project
	err      error
}

// App is the Bubbletea model of the month browser.
type App struct {
	source  MonthSource
	month   project.Month
	now     func() time.Time
	spinner spinner.Model
	list    projectListModel
	seq     int // bumped by every load, older results are dropped
	loading bool
	errMsg  string
}

func NewApp(source MonthSource, start project.Month) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		source:  source,
		month:   start,
		now:     time.Now,
		spinner: s,
		list:    newProjectList(),
	}
}

// Month is the month currently shown.
func (a *App) Month() project.Month {
	return a.month
}

func (a *App) Init() tea.Cmd {
	return a.goTo(a.month)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.list.filtering {
			var cmd tea.Cmd
			a.list, cmd = a.list.Update(msg)
			return a, cmd
		}
		return a.handleKey(msg)

	case monthLoadedMsg:
		if msg.seq != a.seq {
			// paged on or reloaded since
			return a, nil
		}
		a.loading = false
		if msg.err != nil {
			a.errMsg = msg.err.Error()
			a.list.SetProjects(nil)
			return a, nil
		}
		a.errMsg = ""
		a.list.SetProjects(msg.projects)
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "left", "h":
		return a, a.goTo(a.month.Add(-1))
	case "right", "l":
		return a, a.goTo(a.month.Add(1))
	case "t":
		return a, a.goTo(project.MonthOf(a.now()))
	case "r":
		a.source.Invalidate(a.month.Start())
		return a, a.goTo(a.month)
	case "/":
		return a, a.list.StartFilter()
	case "j":
		a.list.moveCursor(1)
		return a, nil
	case "k":
		a.list.moveCursor(-1)
		return a, nil
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

func (a *App) goTo(m project.Month) tea.Cmd {
	a.month = m
	a.seq++
	a.loading = true
	a.errMsg = ""
	return tea.Batch(a.spinner.Tick, a.load(m))
}

func (a *App) load(m project.Month) tea.Cmd {
	source, seq := a.source, a.seq
	return func() tea.Msg {
		projects, err := source.Month(context.Background(), m.Start())
		return monthLoadedMsg{seq: seq, month: m, projects: projects, err: err}
	}
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("gigcal — " + a.month.Start().Format("January 2006")))
	b.WriteString("\n")

	switch {
	case a.loading:
		b.WriteString(a.spinner.View() + " Loading projects...\n")
	case a.errMsg != "":
		b.WriteString(errorStyle.Render("Error: "+a.errMsg) + "\n")
		b.WriteString(dimStyle.Render("Press r to retry") + "\n")
	default:
		b.WriteString(countStyle.Render(fmt.Sprintf("%d projects", len(a.list.projects))))
		b.WriteString("\n")
		b.WriteString(a.list.View())
		if p, ok := a.list.Selected(); ok {
			b.WriteString(detailStyle.Render(detail(p)))
			b.WriteString("\n")
		}
	}

	st := a.source.Stats()
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"cache: %d months, %d loading, %.0f%% hit rate", st.Entries, st.Pending, st.HitRate())))
	b.WriteString(helpStyle.Render(
		"\n←/→: month • t: today • r: reload • /: filter • ↑/↓: select • q: quit"))

	return b.String()
}

func detail(p project.Project) string {
	var lines []string
	lines = append(lines, highlightStyle.Render(p.Title))
	if p.VenueAddress != "" {
		lines = append(lines, "Venue:   "+p.VenueAddress)
	}
	if p.EventType != "" {
		lines = append(lines, "Type:    "+p.EventType)
	}
	if p.Status != "" {
		lines = append(lines, "Status:  "+p.Status)
	}
	if p.CrewCount > 0 {
		crew := fmt.Sprintf("Crew:    %d/%d", p.FilledPositions, p.CrewCount)
		if p.FilledPositions < p.CrewCount {
			crew = warningStyle.Render(crew)
		} else {
			crew = successStyle.Render(crew)
		}
		lines = append(lines, crew)
	}
	if p.Client != nil {
		lines = append(lines, "Client:  "+p.Client.FullName)
	}
	if p.Manager != nil {
		lines = append(lines, "Manager: "+p.Manager.FullName)
	}
	return strings.Join(lines, "\n")
}
