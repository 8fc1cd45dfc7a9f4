package metrics

import (
	"time"

	obserrors "github.com/cargosense/cargosense/internal/observability/errors"
	"github.com/cargosense/cargosense/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures details about a cargo job operation for metric emission.
type JobMetric struct {
	Operation string // create, update, delete
	Result    string
	Duration  time.Duration
	Err       error
}

// EmitJobOperation emits standardised cargo job CRUD metrics.
func EmitJobOperation(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"operation": in.Operation,
		"result":    in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.operation", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// ChatMetric captures details about one advisor chat call.
type ChatMetric struct {
	Model    string
	Stream   bool
	Fallback bool
	Result   string
	Duration time.Duration
	Err      error
}

// EmitChatCall emits advisor chat call metrics.
func EmitChatCall(sink statsd.Sink, in ChatMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"model":  in.Model,
		"result": in.Result,
	}
	if in.Stream {
		tags["stream"] = "true"
	}
	if in.Fallback {
		tags["fallback"] = "true"
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("chat.call", 1, tags)

	if in.Duration > 0 {
		sink.Timing("chat.latency", in.Duration, CloneTags(tags))
	}
}

// ReminderMetric captures one reminder delivery attempt.
type ReminderMetric struct {
	Kind   string
	Result string
	Err    error
}

// EmitReminder emits delivery reminder metrics.
func EmitReminder(sink statsd.Sink, in ReminderMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"kind":   in.Kind,
		"result": in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("reminder.sent", 1, tags)
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
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
