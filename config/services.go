package config

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeReminder runs the delivery reminder scanner.
	ServiceModeReminder ServiceMode = "reminder"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeReminder,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeReminder:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, reminder)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ReminderConfig contains delivery reminder scanner configuration.
type ReminderConfig struct {
	// Schedule is the cron spec for the reminder scan.
	Schedule string `env:"REMINDER_SCHEDULE" envDefault:"@every 1h"`

	// JobURLPrefix builds clickable job links in Slack reminders
	// (e.g., "https://cargo.example.com/jobs").
	JobURLPrefix string `env:"REMINDER_JOB_URL_PREFIX"`
}

// Sanitize applies guardrails to reminder configuration values.
func (r *ReminderConfig) Sanitize() {
	r.Schedule = strings.TrimSpace(r.Schedule)
	if r.Schedule == "" {
		r.Schedule = "@every 1h"
	}
	r.JobURLPrefix = strings.TrimRight(strings.TrimSpace(r.JobURLPrefix), "/")
}
