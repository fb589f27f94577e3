package httpx

// CurrentPage constants define the page identifiers used in templates and navigation.
const (
	PageDashboard    = "dashboard"
	PageIncidents    = "incidents"
	PageRequestItems = "ritms"
	PageProfile      = "profile"
)

// Dashboard tabs.
const (
	TabIncidents    = "incidents"
	TabRequestItems = "request-items"
	TabUsers        = "users"
)

// Template paths used for loading templates in tests and production.
const (
	TemplatePathFromRoot = "frontend/templates"       // From project root
	TemplatePathFromTest = "../../frontend/templates" // From internal/http test files
)

// Content templates are defined once and reused to avoid per-call allocations.
//
//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageDashboard:    "dashboard-content",
	PageIncidents:    "incidents-content",
	PageRequestItems: "ritms-content",
	PageProfile:      "profile-content",
}

// ContentTemplateMap returns the mapping from CurrentPage to template name.
func ContentTemplateMap() map[string]string { return contentTemplates }

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to dashboard-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := ContentTemplateMap()[currentPage]; ok {
		return name
	}
	return "dashboard-content"
}
