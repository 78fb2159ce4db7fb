package dispatch

import (
	"strings"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/normalize"
)

// Format renders the notification line of an event:
// "<threat> <city> (<region> area)". A missing city or region drops its part.
func Format(e model.Event) string {
	var b strings.Builder
	b.WriteString(e.Threat.Label())
	if e.City != "" {
		b.WriteByte(' ')
		b.WriteString(e.City)
	}
	if e.Region != "" {
		if display := normalize.RegionDisplay(e.Region); display != "" {
			b.WriteString(" (")
			b.WriteString(display)
			b.WriteString(" area)")
		}
	}
	return b.String()
}
