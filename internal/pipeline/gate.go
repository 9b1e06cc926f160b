package pipeline

import (
	"context"
	"log/slog"
	"time"

	"ecopulse/internal/domain"
	"ecopulse/internal/ports"
)

// Gate decides whether a new urgent item may be published immediately. It is
// a pure decision: the caller updates the publication record only after a
// successful send.
type Gate struct {
	sink      ports.Sink
	channelID int64
	minViews  int
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewGate wires the urgent-lane gate against the sink's engagement query.
func NewGate(sink ports.Sink, channelID int64, minViews int, timeout time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		sink:      sink,
		channelID: channelID,
		minViews:  minViews,
		timeout:   timeout,
		now:       time.Now,
		logger:    logger,
	}
}

// CanPublish returns true on cold start, when the previous urgent post has
// gathered enough views, or when enough wall-clock time has passed since it
// was sent. A failing engagement query is non-fatal: the gate degrades to
// time-only pacing.
func (g *Gate) CanPublish(ctx context.Context, record domain.PublicationRecord) bool {
	if record.MessageID == 0 {
		return true
	}

	views, err := g.sink.EngagementCount(ctx, g.channelID, record.MessageID)
	if err != nil {
		g.logger.Warn("engagement query failed", "message_id", record.MessageID, "error", err)
	} else if views >= g.minViews {
		g.logger.Info("gate open on engagement", "views", views, "threshold", g.minViews)
		return true
	}

	elapsed := g.now().Sub(record.SentAt)
	if elapsed >= g.timeout {
		g.logger.Info("gate open on elapsed time", "elapsed", elapsed, "timeout", g.timeout)
		return true
	}

	g.logger.Debug("gate closed", "views", views, "elapsed", elapsed)
	return false
}
