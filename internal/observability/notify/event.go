package notify

import (
	"context"
	"log/slog"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// ReminderKind identifies which reminder threshold fired.
type ReminderKind string

const (
	ReminderSevenDay       ReminderKind = "seven_day"
	ReminderTwentyFourHour ReminderKind = "twenty_four_hour"
	ReminderOverdue        ReminderKind = "overdue"
)

// DeliveryReminderPayload captures the canonical data we emit for delivery
// reminder notifications.
type DeliveryReminderPayload struct {
	JobID                 string
	ShipperName           string
	DropoffLocation       string
	EstimatedDeliveryDate string
	Kind                  ReminderKind
	Severity              string
	OccurredAt            time.Time
	Metadata              map[string]string
}

// Sink describes a destination capable of consuming delivery reminders.
type Sink interface {
	SendDeliveryReminder(ctx context.Context, payload DeliveryReminderPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload DeliveryReminderPayload) error

// SendDeliveryReminder implements the Sink interface.
func (f SinkFunc) SendDeliveryReminder(ctx context.Context, payload DeliveryReminderPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}

// NewLogSink returns a Sink that writes reminders to the logger. It is the
// default destination when no webhook is configured.
func NewLogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return SinkFunc(func(ctx context.Context, payload DeliveryReminderPayload) error {
		logger.InfoContext(ctx, "delivery reminder",
			"job_id", payload.JobID,
			"shipper", payload.ShipperName,
			"dropoff", payload.DropoffLocation,
			"estimated_delivery", payload.EstimatedDeliveryDate,
			"kind", string(payload.Kind),
			"severity", payload.Severity)
		return nil
	})
}

// Describe renders a short human summary for a reminder kind.
func (k ReminderKind) Describe() string {
	switch k {
	case ReminderSevenDay:
		return "delivery due in 7 days"
	case ReminderTwentyFourHour:
		return "delivery due in 24 hours"
	case ReminderOverdue:
		return "delivery overdue"
	default:
		return "delivery reminder"
	}
}

// DefaultSeverity maps a reminder kind to its alerting severity.
func (k ReminderKind) DefaultSeverity() string {
	switch k {
	case ReminderOverdue:
		return SeverityCritical
	case ReminderTwentyFourHour:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
