package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/snowdash/internal/errors"
)

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "unauthorized", err: apperrors.Unauthorized("no session"), wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Unauthorized"}`},
		{name: "session expired", err: apperrors.SessionExpired("refresh failed"), wantStatus: http.StatusUnauthorized, wantBody: `{"error":"SessionExpired"}`},
		{name: "auth failure", err: apperrors.AuthFailure("bad", nil), wantStatus: http.StatusUnauthorized, wantBody: `{"error":"Invalid credentials"}`},
		{name: "validation", err: apperrors.ValidationField("limit", "limit must be an integer"), wantStatus: http.StatusBadRequest, wantBody: `{"error":"limit must be an integer"}`},
		{name: "upstream", err: apperrors.MapUpstreamError(errors.New("dial tcp: refused")), wantStatus: http.StatusInternalServerError, wantBody: `{"error":"fetch failed"}`},
		{name: "upstream timeout", err: apperrors.MapUpstreamError(fmt.Errorf("get: %w", context.DeadlineExceeded)), wantStatus: http.StatusInternalServerError, wantBody: `{"error":"fetch failed"}`},
		{name: "plain error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantBody: `{"error":"fetch failed"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAppError(rec, tt.err, "fetch failed")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus, StatusForError(tt.err))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
