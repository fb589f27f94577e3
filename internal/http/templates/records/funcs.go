// Package records exposes the ServiceNow presentation helpers to html/template.
package records

import (
	"html/template"

	"github.com/target/snowdash/internal/domain/record"
	"github.com/target/snowdash/internal/present"
)

// Funcs returns template helpers for rendering ServiceNow record cards.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"field":   present.Field,
		"fieldOr": present.FieldOr,
		"lookup":  present.Lookup,
		"display": present.Display,
		"value": func(rec record.Record, name string) any {
			return rec[name]
		},

		"priorityVariant": func(v any) string { return string(present.PriorityVariant(v)) },
		"priorityColor":   func(v any) string { return string(present.PriorityColor(v)) },
		"stateVariant":    func(v any) string { return string(present.StateVariant(v)) },
		"stateColor":      func(v any) string { return string(present.StateColor(v)) },
		"activeVariant":   func(v any) string { return string(present.ActiveVariant(v)) },

		"formatDate": present.FormatDate,
		"formatDay":  present.FormatDay,

		"fullName": present.FullName,
		"initials": present.Initials,
		"isActive": present.IsActive,
	}
}
