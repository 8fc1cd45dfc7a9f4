package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cargosense/cargosense/internal/core"
	"github.com/cargosense/cargosense/internal/domain/model"
	"github.com/cargosense/cargosense/internal/observability/metrics"
	"github.com/cargosense/cargosense/internal/observability/notify"
	"github.com/cargosense/cargosense/internal/observability/statsd"
)

const (
	// dedupTTL keeps a fired reminder key around long past its window so a
	// restart cannot re-send it.
	dedupTTL = 14 * 24 * time.Hour

	defaultReminderSchedule = "@every 1h"
)

// ReminderConfig tunes the reminder scan.
type ReminderConfig struct {
	// Schedule is a cron spec, default "@every 1h".
	Schedule string
	// Escalation receives overdue notifications. Optional; when nil overdue
	// jobs go to the regular sink.
	Escalation notify.Sink
}

// ReminderServiceOptions groups dependencies for ReminderService.
type ReminderServiceOptions struct {
	Jobs  core.JobRepository
	Cache core.CacheRepository
	Sink  notify.Sink
	// Prefs gates reminders on the job creator's stored notification
	// preferences. Optional; when nil every reminder kind is allowed.
	Prefs  core.PreferencesRepository
	Config ReminderConfig
	Stats  statsd.Sink
	Logger *slog.Logger
}

// ReminderService periodically scans scheduled jobs and emits delivery
// reminders at the 7-day and 24-hour marks, escalating once a delivery goes
// overdue. Redis SET NX keys stop the same reminder firing twice across
// restarts and replicas.
type ReminderService struct {
	jobs       core.JobRepository
	cache      core.CacheRepository
	sink       notify.Sink
	escalation notify.Sink
	prefs      core.PreferencesRepository
	schedule   string
	stats      statsd.Sink
	logger     *slog.Logger
	now        func() time.Time
	cron       *cron.Cron
}

// NewReminderService constructs a new ReminderService.
func NewReminderService(opts ReminderServiceOptions) *ReminderService {
	if opts.Jobs == nil {
		panic("ReminderService requires a job repository")
	}
	if opts.Cache == nil {
		panic("ReminderService requires a cache repository")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	schedule := opts.Config.Schedule
	if schedule == "" {
		schedule = defaultReminderSchedule
	}
	escalation := opts.Config.Escalation
	if escalation == nil {
		escalation = opts.Sink
	}
	return &ReminderService{
		jobs:       opts.Jobs,
		cache:      opts.Cache,
		sink:       opts.Sink,
		escalation: escalation,
		prefs:      opts.Prefs,
		schedule:   schedule,
		stats:      opts.Stats,
		logger:     logger.With("service", "reminder"),
		now:        time.Now,
	}
}

// Start registers the scan on a cron runner and begins ticking. It returns an
// error for an invalid schedule spec.
func (s *ReminderService) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		if err := s.Scan(ctx); err != nil {
			s.logger.Error("reminder scan failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminder scan %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminder scan scheduled", "schedule", s.schedule)
	return nil
}

// Stop halts the cron runner and waits for a running scan to finish.
func (s *ReminderService) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Scan walks scheduled jobs once and sends any due reminders. It is exposed
// for tests and for a manual trigger.
func (s *ReminderService) Scan(ctx context.Context) error {
	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return fmt.Errorf("list jobs for reminder scan: %w", err)
	}

	now := s.now()
	var sent int
	prefsByUser := map[string]*model.NotificationPreferences{}
	for _, job := range jobs {
		if job == nil || job.DeliveryStatus != model.DeliveryScheduled {
			continue
		}
		kind, ok := dueReminder(job, now)
		if !ok {
			continue
		}
		if !s.allowsReminder(ctx, job.CreatedBy, kind, prefsByUser) {
			continue
		}
		fired, err := s.fire(ctx, job, kind, now)
		if err != nil {
			s.logger.Error("failed to send reminder",
				"job_id", job.ID, "kind", kind, "error", err)
			metrics.EmitReminder(s.stats, metrics.ReminderMetric{
				Kind: string(kind), Result: metrics.ResultError, Err: err,
			})
			continue
		}
		if fired {
			sent++
			metrics.EmitReminder(s.stats, metrics.ReminderMetric{
				Kind: string(kind), Result: metrics.ResultSuccess,
			})
		}
	}

	if sent > 0 {
		s.logger.Info("reminder scan complete", "sent", sent, "jobs", len(jobs))
	}
	return nil
}

// allowsReminder checks the job creator's notification preferences for the
// given kind. Users without stored preferences get the defaults, which allow
// everything. cache holds preferences already loaded this scan.
func (s *ReminderService) allowsReminder(
	ctx context.Context,
	userID string,
	kind notify.ReminderKind,
	cache map[string]*model.NotificationPreferences,
) bool {
	if s.prefs == nil {
		return true
	}
	prefs, ok := cache[userID]
	if !ok {
		prefs = s.loadPreferences(ctx, userID)
		cache[userID] = prefs
	}
	if !prefs.Enabled {
		return false
	}
	switch kind {
	case notify.ReminderSevenDay:
		return prefs.SevenDayNotice
	case notify.ReminderTwentyFourHour:
		return prefs.TwentyFourHourNotice
	default:
		return true
	}
}

func (s *ReminderService) loadPreferences(ctx context.Context, userID string) *model.NotificationPreferences {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, model.ErrPreferencesNotFound) {
			s.logger.Warn("failed to load notification preferences, using defaults",
				"user_id", userID, "error", err)
		}
		defaults := model.DefaultNotificationPreferences(userID)
		return &defaults
	}
	return prefs
}

// dueReminder decides the most urgent reminder a job currently qualifies for.
// Jobs with malformed estimated dates are skipped.
func dueReminder(job *model.CargoJob, now time.Time) (notify.ReminderKind, bool) {
	estimated, ok := model.ParseDate(job.EstimatedDeliveryDate)
	if !ok {
		return "", false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	until := estimated.Sub(today)

	switch {
	case until < 0:
		return notify.ReminderOverdue, true
	case until <= 24*time.Hour:
		return notify.ReminderTwentyFourHour, true
	case until <= 7*24*time.Hour:
		return notify.ReminderSevenDay, true
	default:
		return "", false
	}
}

// fire sends one reminder, claiming the dedup key first. Returns false when
// another replica already claimed it.
func (s *ReminderService) fire(ctx context.Context, job *model.CargoJob, kind notify.ReminderKind, now time.Time) (bool, error) {
	key := fmt.Sprintf("reminder:%s:%s", job.ID, kind)
	claimed, err := s.cache.SetIfNotExists(ctx, key, []byte(now.UTC().Format(time.RFC3339)), dedupTTL)
	if err != nil {
		return false, fmt.Errorf("claim reminder key %s: %w", key, err)
	}
	if !claimed {
		return false, nil
	}

	sink := s.sink
	if kind == notify.ReminderOverdue {
		sink = s.escalation
	}
	if sink == nil {
		return false, nil
	}

	payload := notify.DeliveryReminderPayload{
		JobID:                 job.ID,
		ShipperName:           job.ShipperName,
		DropoffLocation:       job.DropoffLocation,
		EstimatedDeliveryDate: job.EstimatedDeliveryDate,
		Kind:                  kind,
		Severity:              kind.DefaultSeverity(),
		OccurredAt:            now,
	}
	if err := sink.SendDeliveryReminder(ctx, payload); err != nil {
		// Release the claim so the next scan can retry.
		if _, delErr := s.cache.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to release reminder key", "key", key, "error", delErr)
		}
		return false, err
	}
	return true, nil
}
