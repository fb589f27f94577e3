package errors

import (
	"context"
	"errors"
)

// MapUpstreamError wraps an error returned by a ServiceNow call as an upstream
// failure. Deadlines and cancellation get their own message but the same code.
// AppErrors pass through unchanged.
func MapUpstreamError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := asAppError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Upstream(err, "ServiceNow did not respond in time.")
	case errors.Is(err, context.Canceled):
		return Upstream(err, "Request was canceled.")
	default:
		return Upstream(err, "ServiceNow request failed")
	}
}
