package viewmodel

// User represents the signed-in ServiceNow user exposed to templates.
type User struct {
	DisplayName string
	Username    string
	Email       string
	Initials    string
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title           string
	PageTitle       string
	CurrentPage     string
	CSRFToken       string
	IsAuthenticated bool
	AuthMode        string
	User            *User
}
