package servicenow

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response we keep for diagnostics.
const maxErrorBody = 64 << 10

// UpstreamError describes a failed ServiceNow call. Status is 0 when the
// request never produced a response (DNS, TLS, connection reset, ...).
type UpstreamError struct {
	Status  int
	Message string
	Detail  string
	Cause   error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	b.WriteString("servicenow")
	if e.Status > 0 {
		fmt.Fprintf(&b, " %d", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Detail != "" {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteByte(')')
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// errorEnvelope is the body ServiceNow returns on failure:
//
//	{"error": {"message": "User Not Authenticated", "detail": "Required to provide Auth information"}, "status": "failure"}
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// newUpstreamError reads and closes the response body, parsing the ServiceNow
// error envelope when present and falling back to the raw text otherwise.
func newUpstreamError(resp *http.Response) *UpstreamError {
	defer resp.Body.Close()

	ue := &UpstreamError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		ue.Message = http.StatusText(resp.StatusCode)
		ue.Cause = fmt.Errorf("read error body: %w", err)
		return ue
	}

	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		ue.Message = env.Error.Message
		ue.Detail = env.Error.Detail
		return ue
	}

	ue.Message = strings.TrimSpace(string(body))
	if ue.Message == "" {
		ue.Message = http.StatusText(resp.StatusCode)
	}
	return ue
}
