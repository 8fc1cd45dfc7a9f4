package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cargosense/cargosense/internal/ai"
	"github.com/cargosense/cargosense/internal/core"
	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
	"github.com/cargosense/cargosense/internal/observability/metrics"
	"github.com/cargosense/cargosense/internal/observability/statsd"
	"github.com/cargosense/cargosense/internal/stats"
)

const (
	defaultContextTTL = 5 * time.Minute
	topShipperCount   = 5
	recentJobCount    = 10
)

// ContextCache holds one computed BusinessContext with an expiry. Concurrent
// refreshes are collapsed through singleflight so a cold cache triggers at
// most one jobs query.
type ContextCache struct {
	mu         sync.Mutex
	value      *ai.BusinessContext
	computedAt time.Time
	ttl        time.Duration
	group      singleflight.Group
}

// NewContextCache creates a cache with the given TTL, defaulting to 5 minutes.
func NewContextCache(ttl time.Duration) *ContextCache {
	if ttl <= 0 {
		ttl = defaultContextTTL
	}
	return &ContextCache{ttl: ttl}
}

// IsStale reports whether the cached value is missing or older than the TTL.
func (c *ContextCache) IsStale(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value == nil || now.Sub(c.computedAt) >= c.ttl
}

func (c *ContextCache) get() (*ai.BusinessContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil || time.Since(c.computedAt) >= c.ttl {
		return nil, false
	}
	return c.value, true
}

func (c *ContextCache) put(v *ai.BusinessContext, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.computedAt = at
}

// Invalidate drops the cached context so the next chat recomputes it.
func (c *ContextCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
}

// AdvisorBackend is the slice of the AI client the advisor needs.
type AdvisorBackend interface {
	Model() string
	Generate(ctx context.Context, system, prompt string) (*ai.GenerateResult, error)
	GenerateStream(ctx context.Context, system, prompt string) (io.ReadCloser, error)
}

// AdvisorServiceOptions groups dependencies for AdvisorService.
type AdvisorServiceOptions struct {
	Jobs      core.JobRepository
	Backend   AdvisorBackend
	Analytics core.ChatAnalyticsRepository
	Cache     *ContextCache
	Stats     statsd.Sink
	Logger    *slog.Logger
}

// AdvisorService answers questions about the logistics data. It assembles a
// business context snapshot from the job list, builds a grounded prompt, and
// calls the AI backend, falling back to canned summaries when the backend is
// unreachable. Every call leaves a row in ai_chat_analytics.
type AdvisorService struct {
	jobs      core.JobRepository
	backend   AdvisorBackend
	analytics core.ChatAnalyticsRepository
	cache     *ContextCache
	stats     statsd.Sink
	logger    *slog.Logger
	now       func() time.Time
}

// NewAdvisorService constructs a new AdvisorService.
func NewAdvisorService(opts AdvisorServiceOptions) *AdvisorService {
	if opts.Jobs == nil {
		panic("AdvisorService requires a job repository")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := opts.Cache
	if cache == nil {
		cache = NewContextCache(defaultContextTTL)
	}
	return &AdvisorService{
		jobs:      opts.Jobs,
		backend:   opts.Backend,
		analytics: opts.Analytics,
		cache:     cache,
		stats:     opts.Stats,
		logger:    logger.With("service", "advisor"),
		now:       time.Now,
	}
}

// emitChat records one chat-call metric. Fallback answers count as errors
// against the backend with the fallback tag set.
func (s *AdvisorService) emitChat(stream, fallback bool, started time.Time, callErr error) {
	result := metrics.ResultSuccess
	if callErr != nil {
		result = metrics.ResultError
	}
	metrics.EmitChatCall(s.stats, metrics.ChatMetric{
		Model:    s.modelName(),
		Stream:   stream,
		Fallback: fallback,
		Result:   result,
		Duration: s.now().Sub(started),
		Err:      callErr,
	})
}

// BusinessContext returns the cached snapshot, recomputing it when stale.
func (s *AdvisorService) BusinessContext(ctx context.Context) (*ai.BusinessContext, error) {
	if v, ok := s.cache.get(); ok {
		return v, nil
	}

	v, err, _ := s.cache.group.Do("context", func() (any, error) {
		if cached, ok := s.cache.get(); ok {
			return cached, nil
		}
		built, err := s.buildContext(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.put(built, s.now())
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ai.BusinessContext), nil
}

func (s *AdvisorService) buildContext(ctx context.Context) (*ai.BusinessContext, error) {
	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load jobs for advisor context: %w", err)
	}

	all := derefJobs(jobs)
	bc := &ai.BusinessContext{
		Stats:       stats.Aggregate(all, s.now()),
		TopShippers: stats.TopShippers(all, topShipperCount),
		RecentJobs:  recentJobs(all, recentJobCount),
	}
	return bc, nil
}

// ChatInput is one advisor question.
type ChatInput struct {
	SessionID string
	UserID    string
	Message   string
	History   []ai.Message
}

// ChatResult is a completed non-streaming answer.
type ChatResult struct {
	Text     string
	Fallback bool
}

// Chat answers a question in one shot. When the backend fails, it degrades to
// a local fallback answer computed from the same stats snapshot.
func (s *AdvisorService) Chat(ctx context.Context, in ChatInput) (*ChatResult, error) {
	if in.Message == "" {
		return nil, apperrors.ValidationField("message", "message is required")
	}

	bc, err := s.BusinessContext(ctx)
	if err != nil {
		return nil, err
	}

	system := ai.BuildSystemPrompt(*bc)
	prompt := ai.BuildPrompt(in.Message, in.History)
	started := s.now()

	if s.backend == nil {
		notConfigured := errors.New("advisor backend not configured")
		text := ai.FallbackResponse(in.Message, bc.Stats)
		s.record(ctx, in, prompt, &text, nil, started, false, notConfigured, bc)
		s.emitChat(false, true, started, notConfigured)
		return &ChatResult{Text: text, Fallback: true}, nil
	}

	result, err := s.backend.Generate(ctx, system, prompt)
	if err != nil {
		s.logger.Warn("advisor backend failed, using fallback", "error", err)
		text := ai.FallbackResponse(in.Message, bc.Stats)
		s.record(ctx, in, prompt, &text, nil, started, false, err, bc)
		s.emitChat(false, true, started, err)
		return &ChatResult{Text: text, Fallback: true}, nil
	}

	s.record(ctx, in, prompt, &result.Text, result, started, true, nil, bc)
	s.emitChat(false, false, started, nil)
	return &ChatResult{Text: result.Text}, nil
}

// ChatStream opens a streaming answer. The returned body is the raw upstream
// stream; the caller decodes it with ai.NewStreamDecoder and must close it.
// The analytics row is written by Finish once the stream has been drained.
func (s *AdvisorService) ChatStream(ctx context.Context, in ChatInput) (io.ReadCloser, *StreamRecorder, error) {
	if in.Message == "" {
		return nil, nil, apperrors.ValidationField("message", "message is required")
	}
	if s.backend == nil {
		return nil, nil, apperrors.Unavailable("advisor backend not configured")
	}

	bc, err := s.BusinessContext(ctx)
	if err != nil {
		return nil, nil, err
	}

	system := ai.BuildSystemPrompt(*bc)
	prompt := ai.BuildPrompt(in.Message, in.History)
	started := s.now()

	body, err := s.backend.GenerateStream(ctx, system, prompt)
	if err != nil {
		s.record(ctx, in, prompt, nil, nil, started, false, err, bc)
		s.emitChat(true, false, started, err)
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "advisor backend unavailable")
	}

	rec := &StreamRecorder{svc: s, in: in, prompt: prompt, started: started, bc: bc}
	return body, rec, nil
}

// Fallback returns the local degraded answer for a message.
func (s *AdvisorService) Fallback(ctx context.Context, message string) (string, error) {
	bc, err := s.BusinessContext(ctx)
	if err != nil {
		return "", err
	}
	return ai.FallbackResponse(message, bc.Stats), nil
}

// StreamRecorder writes the analytics row for a streamed chat once the
// handler has finished relaying it.
type StreamRecorder struct {
	svc     *AdvisorService
	in      ChatInput
	prompt  string
	started time.Time
	bc      *ai.BusinessContext
}

// Finish records the outcome of the stream. text is the concatenated answer;
// err is the stream error, if any.
func (r *StreamRecorder) Finish(ctx context.Context, text string, err error) {
	var resp *string
	if text != "" {
		resp = &text
	}
	r.svc.record(ctx, r.in, r.prompt, resp, nil, r.started, err == nil, err, r.bc)
	r.svc.emitChat(true, false, r.started, err)
}

func (s *AdvisorService) record(
	ctx context.Context,
	in ChatInput,
	prompt string,
	response *string,
	result *ai.GenerateResult,
	started time.Time,
	success bool,
	callErr error,
	bc *ai.BusinessContext,
) {
	if s.analytics == nil {
		return
	}

	rec := s.buildRecord(in, prompt, response, result, started, success, callErr, bc)

	// Analytics are best-effort; a failed insert never fails the chat.
	if err := s.analytics.Insert(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error("failed to record chat analytics", "error", err)
	}
}

func (s *AdvisorService) buildRecord(
	in ChatInput,
	prompt string,
	response *string,
	result *ai.GenerateResult,
	started time.Time,
	success bool,
	callErr error,
	bc *ai.BusinessContext,
) *model.ChatAnalyticsRecord {
	rec := &model.ChatAnalyticsRecord{
		SessionID:      in.SessionID,
		UserID:         in.UserID,
		ModelName:      s.modelName(),
		Prompt:         prompt,
		Response:       response,
		ResponseTimeMS: int(s.now().Sub(started).Milliseconds()),
		Success:        success,
	}
	if callErr != nil {
		msg := callErr.Error()
		rec.ErrorMessage = &msg
	}
	if result != nil {
		if result.FinishReason != "" {
			reason := result.FinishReason
			rec.FinishReason = &reason
		}
		if result.Usage != nil {
			rec.PromptTokenCount = result.Usage.PromptTokenCount
			rec.CandidatesTokenCount = result.Usage.CandidatesTokenCount
			rec.TotalTokenCount = result.Usage.TotalTokenCount
			rec.ThoughtsTokenCount = result.Usage.ThoughtsTokenCount
		}
	}
	rec.ContextSnapshot = contextSnapshot(bc)
	return rec
}

func (s *AdvisorService) modelName() string {
	if s.backend == nil {
		return "local-fallback"
	}
	return s.backend.Model()
}

func derefJobs(jobs []*model.CargoJob) []model.CargoJob {
	out := make([]model.CargoJob, 0, len(jobs))
	for _, j := range jobs {
		if j != nil {
			out = append(out, *j)
		}
	}
	return out
}

// recentJobs trims the newest n jobs down to the fields the prompt needs.
// The repository already returns jobs newest first.
func recentJobs(jobs []model.CargoJob, n int) []ai.RecentJob {
	if n > len(jobs) {
		n = len(jobs)
	}
	out := make([]ai.RecentJob, 0, n)
	for _, j := range jobs[:n] {
		out = append(out, ai.RecentJob{
			ID:                    j.ID,
			ShipperName:           j.ShipperName,
			DeliveryStatus:        j.DeliveryStatus,
			PaymentStatus:         j.PaymentStatus,
			AgreedPrice:           j.AgreedPrice,
			PickupDate:            j.PickupDate,
			EstimatedDeliveryDate: j.EstimatedDeliveryDate,
			ActualDeliveryDate:    j.ActualDeliveryDate,
		})
	}
	return out
}

// contextSnapshot captures the headline numbers the advisor saw at call time.
func contextSnapshot(bc *ai.BusinessContext) json.RawMessage {
	if bc == nil {
		return json.RawMessage("{}")
	}
	snap := map[string]any{
		"totalJobs":          bc.Stats.Total,
		"totalRevenue":       bc.Stats.TotalRevenue,
		"jobsToday":          bc.Stats.JobsToday,
		"upcomingDeliveries": bc.Stats.UpcomingDeliveries,
		"timeOfDay":          bc.Stats.TimeOfDay,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
