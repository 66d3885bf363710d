package project

import "maps"

// DefaultColor is used when neither the project nor its event type has a color.
const DefaultColor = "#CBD5E1"

// DefaultColors maps event types to their calendar color.
var DefaultColors = map[string]string{
	"roving":     "#FED7AA",
	"roadshow":   "#93C5FD",
	"in-store":   "#DDD6FE",
	"ad-hoc":     "#FEF08A",
	"corporate":  "#BBF7D0",
	"wedding":    "#FDA4AF",
	"concert":    "#A5B4FC",
	"conference": "#FDBA74",
	"other":      "#E2E8F0",

	// brand campaigns
	"nestle":     "#FCA5A5",
	"ribena":     "#DDD6FE",
	"mytown":     "#FDA4AF",
	"warrior":    "#93C5FD",
	"diy":        "#FEF08A",
	"blackmores": "#E2E8F0",

	"default": DefaultColor,
}

// MergeColors returns DefaultColors with overrides applied on top.
func MergeColors(overrides map[string]string) map[string]string {
	out := maps.Clone(DefaultColors)
	for k, v := range overrides {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// ColorFor picks the display color of p: its own color, else the color of
// its event type, else the table's default.
func ColorFor(p Project, table map[string]string) string {
	if p.Color != "" {
		return p.Color
	}
	if table == nil {
		table = DefaultColors
	}
	if p.EventType != "" {
		if c, ok := table[p.EventType]; ok {
			return c
		}
	}
	if c, ok := table["default"]; ok {
		return c
	}
	return DefaultColor
}
