package httpx

import (
	"net/http"
	"strconv"

	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/service"
)

// parseIntQuery returns the integer value of a query param or a default.
// Malformed values are reported so the caller can answer 400.
func parseIntQuery(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.ValidationField(key, key+" must be an integer")
	}
	return i, nil
}

// parseListParams reads limit, offset, query and fields from the query string.
// Defaults and clamping are applied by the service.
func parseListParams(r *http.Request) (service.ListParams, error) {
	limit, err := parseIntQuery(r, "limit", 0)
	if err != nil {
		return service.ListParams{}, err
	}
	offset, err := parseIntQuery(r, "offset", 0)
	if err != nil {
		return service.ListParams{}, err
	}
	q := r.URL.Query()
	return service.ListParams{
		Limit:  limit,
		Offset: offset,
		Query:  q.Get("query"),
		Fields: q.Get("fields"),
	}, nil
}
