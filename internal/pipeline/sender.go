package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ecopulse/internal/domain"
	"ecopulse/internal/ports"
	"ecopulse/internal/runtime"
)

// rateLimitMargin pads the wait demanded by a sink rate-limit signal.
const rateLimitMargin = time.Second

// Sender is the single publication path: dry-run short-circuit, dedup
// admission, one bounded rate-limit retry, stats accounting. Empty payloads
// are dropped silently.
type Sender struct {
	sink   ports.Sink
	state  *runtime.State
	dedupe *DedupCache
	logger *slog.Logger
}

// NewSender wires the sink, shared state, and dedup cache.
func NewSender(sink ports.Sink, state *runtime.State, dedupe *DedupCache, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{sink: sink, state: state, dedupe: dedupe, logger: logger}
}

// Publish sends text to channelID. It returns the sent-message identifier
// and whether the item counts as published. Dry-run returns ok with a zero
// identifier, so publication records stay untouched.
func (s *Sender) Publish(ctx context.Context, channelID int64, text string, category domain.Category) (int64, bool) {
	if strings.TrimSpace(text) == "" {
		s.logger.Debug("dropping empty payload", "category", category)
		return 0, false
	}

	if s.state.DryRun() {
		s.logger.Info("dry-run, skipping send", "category", category, "preview", truncate(text, 100))
		return 0, true
	}

	if !s.dedupe.Admit(text) {
		s.logger.Info("dropping duplicate payload", "category", category)
		return 0, false
	}

	id, err := s.sink.Send(ctx, channelID, text)
	var rateLimited *ports.RateLimitError
	if errors.As(err, &rateLimited) {
		s.state.CountRateLimit()
		s.logger.Warn("rate limited by sink", "wait", rateLimited.RetryAfter)
		if !sleepCtx(ctx, rateLimited.RetryAfter+rateLimitMargin) {
			return 0, false
		}
		id, err = s.sink.Send(ctx, channelID, text)
	}
	if err != nil {
		s.logger.Error("send failed", "category", category, "error", err)
		return 0, false
	}

	s.state.CountPublished(category)
	s.logger.Info("published", "category", category, "message_id", id)
	return id, true
}
