// Package present holds the pure formatting rules used to render ServiceNow
// records as dashboard cards. Every function is total: unexpected input maps
// to a neutral default rather than an error.
package present

import "strings"

// Variant is a badge style.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantSecondary   Variant = "secondary"
	VariantDestructive Variant = "destructive"
	VariantOutline     Variant = "outline"
)

// Color is a badge color family.
type Color string

const (
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorGray   Color = "gray"
)

// Badge pairs the two renderings of one classification.
type Badge struct {
	Variant Variant
	Color   Color
}

var (
	neutral = Badge{Variant: VariantSecondary, Color: ColorGray}

	priorityBadges = map[string]Badge{
		"1":        {VariantDestructive, ColorRed},
		"critical": {VariantDestructive, ColorRed},
		"2":        {VariantDefault, ColorOrange},
		"high":     {VariantDefault, ColorOrange},
		"3":        {VariantSecondary, ColorYellow},
		"medium":   {VariantSecondary, ColorYellow},
		"4":        {VariantOutline, ColorGreen},
		"low":      {VariantOutline, ColorGreen},
	}

	stateBadges = map[string]Badge{
		"new":         {VariantDefault, ColorBlue},
		"in progress": {VariantSecondary, ColorYellow},
		"assigned":    {VariantSecondary, ColorYellow},
		"resolved":    {VariantOutline, ColorGreen},
		"closed":      {VariantSecondary, ColorGray},
		"cancelled":   {VariantDestructive, ColorRed},
	}
)

func lookupBadge(table map[string]Badge, v any) Badge {
	key := strings.ToLower(strings.TrimSpace(Display(v)))
	if b, ok := table[key]; ok {
		return b
	}
	return neutral
}

// PriorityBadge classifies an incident or request item priority.
func PriorityBadge(v any) Badge { return lookupBadge(priorityBadges, v) }

// PriorityVariant returns the badge variant for a priority.
func PriorityVariant(v any) Variant { return PriorityBadge(v).Variant }

// PriorityColor returns the badge color for a priority.
func PriorityColor(v any) Color { return PriorityBadge(v).Color }

// StateBadge classifies a record state.
func StateBadge(v any) Badge { return lookupBadge(stateBadges, v) }

// StateVariant returns the badge variant for a state.
func StateVariant(v any) Variant { return StateBadge(v).Variant }

// StateColor returns the badge color for a state.
func StateColor(v any) Color { return StateBadge(v).Color }

// ActiveVariant is the user card status badge.
func ActiveVariant(v any) Variant {
	if IsActive(v) {
		return VariantDefault
	}
	return VariantDestructive
}
