package model

import (
	"errors"
	"fmt"
)

// ErrPreferencesNotFound is returned when a user has no stored preferences.
var ErrPreferencesNotFound = errors.New("notification preferences not found")

// NotificationStyle controls how delivery reminders are rendered on the client.
type NotificationStyle string

const (
	NotificationStyleBanner NotificationStyle = "banner"
	NotificationStyleSilent NotificationStyle = "silent"
)

// Valid returns true if the NotificationStyle is known.
func (s NotificationStyle) Valid() bool {
	return s == NotificationStyleBanner || s == NotificationStyleSilent
}

// NotificationPreferences holds a user's delivery reminder settings.
type NotificationPreferences struct {
	UserID               string            `json:"user_id"                 db:"user_id"`
	Enabled              bool              `json:"enabled"                 db:"enabled"`
	SevenDayNotice       bool              `json:"seven_day_notice"        db:"seven_day_notice"`
	TwentyFourHourNotice bool              `json:"twenty_four_hour_notice" db:"twenty_four_hour_notice"`
	Sound                string            `json:"sound"                   db:"sound"`
	Style                NotificationStyle `json:"style"                   db:"style"`
}

// DefaultNotificationPreferences returns the settings applied before a user
// has saved anything.
func DefaultNotificationPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:               userID,
		Enabled:              true,
		SevenDayNotice:       true,
		TwentyFourHourNotice: true,
		Sound:                "default",
		Style:                NotificationStyleBanner,
	}
}

// Validate checks the mutable preference fields.
func (p *NotificationPreferences) Validate() error {
	if !p.Style.Valid() {
		return fmt.Errorf("invalid notification style: %q", p.Style)
	}
	if p.Sound == "" {
		p.Sound = "default"
	}
	return nil
}
