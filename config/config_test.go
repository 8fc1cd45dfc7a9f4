package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:  "single service - reminder",
			input: "reminder",
			expected: map[ServiceMode]bool{
				ServiceModeReminder: true,
			},
			expectError: false,
		},
		{
			name:  "all services",
			input: "http,reminder",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:     true,
				ServiceModeReminder: true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " http , reminder ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:     true,
				ServiceModeReminder: true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "http,http,reminder",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:     true,
				ServiceModeReminder: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expected:    nil,
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,invalid-service",
			expected:    nil,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name             string
		services         string
		expectedHTTP     bool
		expectedReminder bool
	}{
		{
			name:             "default - both",
			services:         "http,reminder",
			expectedHTTP:     true,
			expectedReminder: true,
		},
		{
			name:             "http only",
			services:         "http",
			expectedHTTP:     true,
			expectedReminder: false,
		},
		{
			name:             "reminder only",
			services:         "reminder",
			expectedHTTP:     false,
			expectedReminder: true,
		},
		{
			name:             "invalid",
			services:         "invalid-service",
			expectedHTTP:     false,
			expectedReminder: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if cfg.IsHTTPServerEnabled() != tt.expectedHTTP {
				t.Errorf("IsHTTPServerEnabled(): expected %v, got %v", tt.expectedHTTP, cfg.IsHTTPServerEnabled())
			}
			if cfg.IsReminderEnabled() != tt.expectedReminder {
				t.Errorf("IsReminderEnabled(): expected %v, got %v", tt.expectedReminder, cfg.IsReminderEnabled())
			}
		})
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	expected := []ServiceMode{
		ServiceModeHTTP,
		ServiceModeReminder,
	}

	if len(modes) != len(expected) {
		t.Errorf("expected %d service modes, got %d", len(expected), len(modes))
	}

	for i, mode := range modes {
		if mode != expected[i] {
			t.Errorf("expected service mode %s at index %d, got %s", expected[i], i, mode)
		}
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "oauth")
	t.Setenv("ADMIN_GROUP", "cn=admins,ou=groups,dc=example,dc=org")
	t.Setenv("USER_GROUP", "cn=users,ou=groups,dc=example,dc=org")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://app.example.com/auth/callback")
	t.Setenv("OAUTH_DISCOVERY_URL", "https://login.example.com/.well-known/openid-configuration")
	t.Setenv("OAUTH_SCOPE", "openid profile email")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_EMAIL", "dev@example.com")
	t.Setenv("DEV_AUTH_GROUPS", "admins;devs")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeOAuth,
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://app.example.com/auth/callback",
			Scope:        "openid profile email",
			DiscoveryURL: "https://login.example.com/.well-known/openid-configuration",
		},
		DevAuth: DevAuthConfig{
			UserID: "dev-user",
			Email:  "dev@example.com",
			Groups: []string{"admins", "devs"},
		},
		AdminGroup: "cn=admins,ou=groups,dc=example,dc=org",
		UserGroup:  "cn=users,ou=groups,dc=example,dc=org",
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAIConfig_Sanitize(t *testing.T) {
	cfg := AIConfig{
		APIKey:  "  key  ",
		Model:   " models/gemini-2.5-flash ",
		BaseURL: "https://example.com/",
		Timeout: -1,
	}

	cfg.Sanitize()

	if cfg.APIKey != "key" {
		t.Fatalf("expected trimmed api key, got %q", cfg.APIKey)
	}
	if cfg.BaseURL != "https://example.com" {
		t.Fatalf("expected trailing slash stripped, got %q", cfg.BaseURL)
	}
	if cfg.Timeout != 60*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.Timeout)
	}
	if cfg.ContextTTL != 5*time.Minute {
		t.Fatalf("expected default context ttl, got %v", cfg.ContextTTL)
	}
	if !cfg.IsEnabled() {
		t.Fatal("expected backend to be enabled with an api key")
	}

	cfg = AIConfig{}
	cfg.Sanitize()
	if cfg.IsEnabled() {
		t.Fatal("expected backend to be disabled without an api key")
	}
}

func TestBlobConfig_Sanitize(t *testing.T) {
	cfg := BlobConfig{Root: " ", ViewTTL: 0}
	cfg.Sanitize()

	if cfg.Root != "data/receipts" {
		t.Fatalf("expected default root, got %q", cfg.Root)
	}
	if cfg.ViewTTL != 15*time.Minute {
		t.Fatalf("expected default view ttl, got %v", cfg.ViewTTL)
	}
}

func TestReminderConfig_Sanitize(t *testing.T) {
	cfg := ReminderConfig{Schedule: "  ", JobURLPrefix: "https://cargo.example.com/jobs/"}
	cfg.Sanitize()

	if cfg.Schedule != "@every 1h" {
		t.Fatalf("expected default schedule, got %q", cfg.Schedule)
	}
	if cfg.JobURLPrefix != "https://cargo.example.com/jobs" {
		t.Fatalf("expected trailing slash stripped, got %q", cfg.JobURLPrefix)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		Timeout:    0,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
			Channel:    "  ",
			Username:   "",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: " ",
			Source:     "",
			Component:  "",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled without a routing key")
	}
	if cfg.PagerDuty.Source != "cargosense" {
		t.Fatalf("expected pagerduty source default, got %q", cfg.PagerDuty.Source)
	}
	if cfg.PagerDuty.Component != "cargosense" {
		t.Fatalf("expected pagerduty component default, got %q", cfg.PagerDuty.Component)
	}

	// Disabled top-level should disable child sinks.
	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: "abc",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled when top-level notifications disabled")
	}
}
