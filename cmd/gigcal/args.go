package main

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	naturaldate "github.com/tj/go-naturaldate"

	"github.com/christopherklint97/gigcal/internal/config"
	"github.com/christopherklint97/gigcal/internal/project"
)

// monthArg resolves the optional [when] argument to a month. It accepts
// YYYY-MM or anything go-naturaldate understands ("next month", "3 months ago").
func monthArg(args []string, now time.Time) (project.Month, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return project.MonthOf(now), nil
	}
	if m, err := project.ParseMonth(args[0]); err == nil {
		return m, nil
	}
	t, err := naturaldate.Parse(args[0], now)
	if err != nil {
		return project.Month{}, fmt.Errorf("cannot understand month %q: %w", args[0], err)
	}
	return project.MonthOf(t), nil
}

var dateLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseWhen parses an absolute date, or a relative one such as "next friday"
// resolved against ref.
func parseWhen(s string, ref time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot understand date %q: %w", s, err)
	}
	return t, nil
}

func newProjectID() string {
	return uuid.NewString()
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{6})$`)

// saveColor validates an event type color and stores it in the config file.
// It returns the normalized event type and color.
func saveColor(eventType, color string) (string, string, error) {
	eventType = strings.ToLower(strings.TrimSpace(eventType))
	if eventType == "" {
		return "", "", fmt.Errorf("event type is empty")
	}
	match := hexColor.FindStringSubmatch(strings.TrimSpace(color))
	if match == nil {
		return "", "", fmt.Errorf("invalid color %q, expected #RRGGBB", color)
	}
	color = "#" + strings.ToUpper(match[1])

	if err := config.SaveColors(map[string]string{eventType: color}); err != nil {
		return "", "", fmt.Errorf("saving color: %w", err)
	}
	return eventType, color, nil
}
