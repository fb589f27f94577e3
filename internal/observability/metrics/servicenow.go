package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/target/snowdash/internal/observability/errors"
	"github.com/target/snowdash/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// UpstreamCall captures one ServiceNow REST call for metric emission.
// Status is 0 when no response was received.
type UpstreamCall struct {
	Table     string
	Operation string
	Status    int
	Duration  time.Duration
	Err       error
}

// EmitUpstreamCall emits servicenow.request counters and latency.
func EmitUpstreamCall(sink statsd.Sink, in UpstreamCall) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"table":     in.Table,
		"operation": in.Operation,
		"status":    strconv.Itoa(in.Status),
		"result":    resultFor(in.Err),
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("servicenow.request", 1, tags)

	if in.Duration > 0 {
		sink.Timing("servicenow.request.duration", in.Duration, CloneTags(tags))
	}
}

// AuthEvent captures a sign-in or token refresh attempt.
type AuthEvent struct {
	// Kind is "signin" or "refresh".
	Kind string
	Mode string
	Err  error
}

// EmitAuthEvent emits auth.<kind> counters tagged by mode and result.
func EmitAuthEvent(sink statsd.Sink, in AuthEvent) {
	if sink == nil || in.Kind == "" {
		return
	}
	tags := map[string]string{
		"mode":   in.Mode,
		"result": resultFor(in.Err),
	}
	sink.Count("auth."+in.Kind, 1, tags)
}

func resultFor(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
