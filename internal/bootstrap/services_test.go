package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/cargosense/cargosense/config"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 0,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  1,
		},
		{
			name:  "reminder only",
			modes: []config.ServiceMode{config.ServiceModeReminder},
			want:  1,
		},
		{
			name:  "all services enabled",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeReminder},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Errorf("errorChannelCapacity() = %d, want %d", got, tt.want)
			}

			wantBuffer := tt.want + 1
			if got := errorChannelBufferSize(enabled); got != wantBuffer {
				t.Errorf("errorChannelBufferSize() = %d, want %d", got, wantBuffer)
			}
		})
	}
}

func TestBuildNotifySinksDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reminder, escalation := buildNotifySinks(logger, config.ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: config.SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
	})

	if reminder == nil {
		t.Error("expected log reminder sink when notifications disabled")
	}
	if escalation != nil {
		t.Errorf("expected nil escalation sink when notifications disabled, got %T", escalation)
	}
}

func TestBuildNotifySinksEnabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	reminder, escalation := buildNotifySinks(logger, config.ObservabilityNotificationsConfig{
		Enabled: true,
		Slack: config.SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
		PagerDuty: config.PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: "routing-key",
			Source:     "cargosense",
			Component:  "cargosense",
		},
	})

	if reminder == nil {
		t.Error("expected slack reminder sink")
	}
	if escalation == nil {
		t.Error("expected pagerduty escalation sink")
	}
}

func TestBuildAdvisorBackendDisabledWithoutKey(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend, err := BuildAdvisorBackend(config.AIConfig{}, logger)
	if err != nil {
		t.Fatalf("BuildAdvisorBackend() error = %v", err)
	}
	if backend != nil {
		t.Fatalf("expected nil backend without an API key, got %T", backend)
	}
}

func TestGetEnabledServices(t *testing.T) {
	cfg := &config.AppConfig{Services: "reminder,http"}

	got := GetEnabledServices(cfg)
	want := []string{"http", "reminder"}

	if len(got) != len(want) {
		t.Fatalf("GetEnabledServices() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("GetEnabledServices() = %v, want %v", got, want)
		}
	}
}
