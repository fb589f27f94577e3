package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/snowdash/internal/errors"
	"github.com/target/snowdash/internal/service"
)

func TestParseListParams(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/servicenow/incidents?limit=5&offset=10&query=active%3Dtrue&fields=sys_id", nil)
	p, err := parseListParams(r)
	require.NoError(t, err)
	assert.Equal(t, service.ListParams{Limit: 5, Offset: 10, Query: "active=true", Fields: "sys_id"}, p)

	p, err = parseListParams(httptest.NewRequest(http.MethodGet, "/api/servicenow/incidents", nil))
	require.NoError(t, err)
	assert.Equal(t, service.ListParams{}, p)

	_, err = parseListParams(httptest.NewRequest(http.MethodGet, "/api/servicenow/incidents?limit=ten", nil))
	require.Error(t, err)
	assert.Equal(t, "limit", apperrors.GetField(err))
}
