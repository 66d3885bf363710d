package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/gigcal/internal/project"
)

const projectListVisible = 15

// projectListModel is a filterable, scrollable list of one month's projects.
type projectListModel struct {
	projects  []project.Project
	filtered  []int // indices into projects
	cursor    int
	filter    textinput.Model
	filtering bool
}

func newProjectList() projectListModel {
	ti := textinput.New()
	ti.Placeholder = "Filter projects..."
	ti.Prompt = "/ "
	return projectListModel{filter: ti}
}

func (m *projectListModel) SetProjects(projects []project.Project) {
	m.projects = projects
	m.applyFilter()
}

func (m projectListModel) Update(msg tea.Msg) (projectListModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.filtering = false
			m.filter.Blur()
			m.filter.SetValue("")
			m.applyFilter()
			return m, nil
		case "enter":
			m.filtering = false
			m.filter.Blur()
			return m, nil
		case "up":
			m.moveCursor(-1)
			return m, nil
		case "down":
			m.moveCursor(1)
			return m, nil
		}
	}
	if !m.filtering {
		return m, nil
	}

	var cmd tea.Cmd
	prevFilter := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)

	if m.filter.Value() != prevFilter {
		m.applyFilter()
	}

	return m, cmd
}

func (m *projectListModel) StartFilter() tea.Cmd {
	m.filtering = true
	return m.filter.Focus()
}

func (m *projectListModel) moveCursor(delta int) {
	m.cursor = max(0, min(m.cursor+delta, len(m.filtered)-1))
}

func (m *projectListModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	m.filtered = m.filtered[:0]
	for i, p := range m.projects {
		if query == "" ||
			strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.VenueAddress), query) ||
			strings.Contains(strings.ToLower(p.EventType), query) ||
			(p.Client != nil && strings.Contains(strings.ToLower(p.Client.FullName), query)) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// Selected returns the project under the cursor.
func (m projectListModel) Selected() (project.Project, bool) {
	if len(m.filtered) == 0 {
		return project.Project{}, false
	}
	return m.projects[m.filtered[m.cursor]], true
}

func (m projectListModel) View() string {
	var b strings.Builder

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}

	if len(m.filtered) == 0 {
		if len(m.projects) == 0 {
			b.WriteString(dimStyle.Render("  No projects this month"))
		} else {
			b.WriteString(dimStyle.Render("  No projects match filter"))
		}
		b.WriteString("\n")
		return b.String()
	}

	start := 0
	if m.cursor >= projectListVisible {
		start = m.cursor - projectListVisible + 1
	}
	end := min(start+projectListVisible, len(m.filtered))

	for vi := start; vi < end; vi++ {
		p := m.projects[m.filtered[vi]]

		cursor := "  "
		if vi == m.cursor {
			cursor = "> "
		}

		title := p.Title
		if vi == m.cursor {
			title = highlightStyle.Render(title)
		}

		extra := ""
		if p.Client != nil {
			extra = dimStyle.Render(" — " + p.Client.FullName)
		}

		fmt.Fprintf(&b, "%s%s %s  %s%s\n", cursor, swatch(p.Color), formatSpan(p), title, extra)
	}

	return b.String()
}

func formatSpan(p project.Project) string {
	start, end := p.Span()
	start, end = start.Local(), end.Local()
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%-13s", start.Format("Jan 02"))
	}
	return fmt.Sprintf("%-13s", start.Format("Jan 02")+"–"+end.Format("Jan 02"))
}
