package present

import (
	"strings"
	"time"
)

// NotAvailable is rendered for missing or unparsable values.
const NotAvailable = "N/A"

const (
	dateTimeLayout = "Jan 2, 2006, 03:04 PM"
	dayLayout      = "Jan 2, 2006"
)

// Layouts accepted from ServiceNow, tried in order.
var inputLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseTime(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, !t.IsZero()
	}
	s := strings.TrimSpace(Display(v))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a timestamp as "Jan 2, 2006, 03:04 PM".
func FormatDate(v any) string {
	t, ok := parseTime(v)
	if !ok {
		return NotAvailable
	}
	return t.Format(dateTimeLayout)
}

// FormatDay renders a timestamp as "Jan 2, 2006".
func FormatDay(v any) string {
	t, ok := parseTime(v)
	if !ok {
		return NotAvailable
	}
	return t.Format(dayLayout)
}
