package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ecopulse/internal/domain"
	"ecopulse/internal/runtime"
)

// DigestScheduler wakes at each wall-clock hour boundary and synthesizes the
// aggregation buffer into one digest post. The operator can also trigger a
// synthesis manually; both paths share Synthesize and are serialized so they
// never overlap.
type DigestScheduler struct {
	state     *runtime.State
	buffer    *AggregationBuffer
	formatter *Formatter
	sender    *Sender
	channelID int64

	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

// NewDigestScheduler constructs the hourly digest worker.
func NewDigestScheduler(state *runtime.State, buffer *AggregationBuffer, formatter *Formatter, sender *Sender, channelID int64, logger *slog.Logger) *DigestScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DigestScheduler{
		state:     state,
		buffer:    buffer,
		formatter: formatter,
		sender:    sender,
		channelID: channelID,
		now:       time.Now,
		logger:    logger,
	}
}

// Run sleeps to each top-of-hour instant and triggers synthesis while the
// digest lane is enabled. It returns when ctx is cancelled.
func (d *DigestScheduler) Run(ctx context.Context) {
	for {
		next := nextHourBoundary(d.now())
		wait := next.Sub(d.now())
		d.logger.Info("sleeping until next digest", "at", next.Format("15:04"), "wait", wait.Round(time.Second))
		if !sleepCtx(ctx, wait) {
			return
		}
		if d.state.Active() && d.state.LaneEnabled(runtime.LaneDigest) {
			d.Synthesize(ctx)
		}
	}
}

// Synthesize drains the buffer, joins the entries in insertion order, and
// publishes one digest. An empty buffer emits nothing. The drain is atomic:
// entries appended while synthesis runs belong to the next generation.
func (d *DigestScheduler) Synthesize(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := d.buffer.Drain()
	if len(entries) == 0 {
		d.logger.Info("digest buffer empty, skipping synthesis")
		return false
	}

	combined := strings.Join(entries, "\n")
	text := d.formatter.Digest(ctx, combined)
	_, ok := d.sender.Publish(ctx, d.channelID, text, domain.CategoryDigest)
	return ok
}

// nextHourBoundary returns the next wall-clock top-of-hour after t.
func nextHourBoundary(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
}
