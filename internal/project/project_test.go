package project

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func TestMonthKeyAndBounds(t *testing.T) {
	m := MonthOf(time.Date(2025, time.March, 17, 12, 0, 0, 0, time.UTC))

	assert.Equal(t, "2025-3", m.Key())
	assert.Equal(t, "2025-03", m.String())
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), m.Start())
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), m.End())
}

func TestMonthAdd(t *testing.T) {
	m := MonthOf(date(2025, time.January, 31))

	assert.Equal(t, "2024-12", m.Add(-1).String())
	assert.Equal(t, "2025-02", m.Add(1).String())
	assert.Equal(t, "2026-01", m.Add(12).String())
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, time.March, m.Month)

	m, err = ParseMonth("2025-3")
	require.NoError(t, err)
	assert.Equal(t, "2025-3", m.Key())

	_, err = ParseMonth("March")
	assert.Error(t, err)
}

func TestOverlaps(t *testing.T) {
	march := MonthOf(date(2025, time.March, 1))

	tests := []struct {
		name string
		p    Project
		want bool
	}{
		{"inside", Project{StartDate: date(2025, time.March, 3), EndDate: ptr(date(2025, time.March, 5))}, true},
		{"starts inside ends after", Project{StartDate: date(2025, time.March, 30), EndDate: ptr(date(2025, time.April, 2))}, true},
		{"starts before ends inside", Project{StartDate: date(2025, time.February, 27), EndDate: ptr(date(2025, time.March, 2))}, true},
		{"spans whole month", Project{StartDate: date(2025, time.February, 1), EndDate: ptr(date(2025, time.May, 1))}, true},
		{"outside", Project{StartDate: date(2025, time.April, 2), EndDate: ptr(date(2025, time.April, 4))}, false},
		{"single day without end", Project{StartDate: date(2025, time.March, 9)}, true},
		{"single day before", Project{StartDate: date(2025, time.February, 28)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.p, march))
		})
	}
}

func TestUnique(t *testing.T) {
	in := []Project{
		{ID: "a", Title: "first"},
		{ID: "b"},
		{ID: "a", Title: "second"},
	}

	out := Unique(in)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "b", out[1].ID)
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, "#123456", ColorFor(Project{Color: "#123456", EventType: "roving"}, nil))
	assert.Equal(t, "#FED7AA", ColorFor(Project{EventType: "roving"}, nil))
	assert.Equal(t, DefaultColor, ColorFor(Project{EventType: "unknown"}, nil))
	assert.Equal(t, DefaultColor, ColorFor(Project{}, nil))

	table := MergeColors(map[string]string{"roving": "#000000", "default": "#FFFFFF"})
	assert.Equal(t, "#000000", ColorFor(Project{EventType: "roving"}, table))
	assert.Equal(t, "#FFFFFF", ColorFor(Project{}, table))
	assert.Equal(t, "#FED7AA", DefaultColors["roving"], "defaults must not be mutated")
}
