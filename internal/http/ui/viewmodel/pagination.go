package viewmodel

// Pagination describes a limit/offset window over a ServiceNow table.
// HasNext is a guess: a full page suggests more rows follow.
type Pagination struct {
	Limit      int
	Offset     int
	HasPrev    bool
	HasNext    bool
	StartIndex int
	EndIndex   int
	PrevURL    string
	NextURL    string
}
