package pipeline

import (
	"context"
	"log/slog"
	"time"

	"ecopulse/internal/domain"
	"ecopulse/internal/ports"
	"ecopulse/internal/runtime"
)

const (
	disabledIdle = 5 * time.Second
	emptyIdle    = time.Second
)

// ScheduledPublisher drains the backlog queue one item at a time. Release
// pacing is deliberate backpressure: the next item does not go out until the
// previous scheduled post has been seen by enough of the audience, or the
// optional safety ceiling expires.
type ScheduledPublisher struct {
	state        *runtime.State
	backlog      *BacklogQueue
	formatter    *Formatter
	sender       *Sender
	sink         ports.Sink
	channelID    int64
	minViews     int
	pollInterval time.Duration
	cooldown     time.Duration
	// maxWait caps the engagement wait; zero keeps it unbounded.
	maxWait time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// PublisherDeps wires the scheduled publisher's collaborators.
type PublisherDeps struct {
	State        *runtime.State
	Backlog      *BacklogQueue
	Formatter    *Formatter
	Sender       *Sender
	Sink         ports.Sink
	ChannelID    int64
	MinViews     int
	PollInterval time.Duration
	Cooldown     time.Duration
	MaxWait      time.Duration
	Logger       *slog.Logger
}

// NewScheduledPublisher constructs the backlog drain worker.
func NewScheduledPublisher(deps PublisherDeps) *ScheduledPublisher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = time.Minute
	}
	if deps.Cooldown <= 0 {
		deps.Cooldown = 10 * time.Second
	}
	return &ScheduledPublisher{
		state:        deps.State,
		backlog:      deps.Backlog,
		formatter:    deps.Formatter,
		sender:       deps.Sender,
		sink:         deps.Sink,
		channelID:    deps.ChannelID,
		minViews:     deps.MinViews,
		pollInterval: deps.PollInterval,
		cooldown:     deps.Cooldown,
		maxWait:      deps.MaxWait,
		now:          time.Now,
		logger:       logger,
	}
}

// Run drains the backlog until ctx is cancelled.
func (p *ScheduledPublisher) Run(ctx context.Context) {
	for ctx.Err() == nil {
		p.step(ctx)
	}
}

// step performs one drain iteration: idle while disabled or empty, otherwise
// wait out the backpressure gate, format, and send. A formatted-empty item is
// dropped, not re-queued.
func (p *ScheduledPublisher) step(ctx context.Context) {
	if !p.state.Active() || !p.state.LaneEnabled(runtime.LaneScheduled) {
		sleepCtx(ctx, disabledIdle)
		return
	}

	item, ok := p.backlog.Pop()
	if !ok {
		sleepCtx(ctx, emptyIdle)
		return
	}

	p.waitForEngagement(ctx)

	text := p.formatter.Format(ctx, item.Cleaned, emojiForRole(item.Role), false)
	if id, sent := p.sender.Publish(ctx, p.channelID, text, domain.CategoryScheduled); sent && id != 0 {
		p.state.SetScheduledRecord(id, p.now())
	}

	sleepCtx(ctx, p.cooldown)
}

// waitForEngagement polls the engagement metric of the previous scheduled
// post until it reaches the threshold. A sink query failure is swallowed and
// treated as proceed, so a dead sink cannot stall the lane forever.
func (p *ScheduledPublisher) waitForEngagement(ctx context.Context) {
	record := p.state.ScheduledRecord()
	if record.MessageID == 0 {
		return
	}

	var deadline time.Time
	if p.maxWait > 0 {
		deadline = p.now().Add(p.maxWait)
	}

	for ctx.Err() == nil {
		views, err := p.sink.EngagementCount(ctx, p.channelID, record.MessageID)
		if err != nil {
			p.logger.Warn("engagement poll failed, proceeding", "message_id", record.MessageID, "error", err)
			return
		}
		if views >= p.minViews {
			return
		}
		if !deadline.IsZero() && p.now().After(deadline) {
			p.logger.Warn("engagement wait ceiling reached, proceeding",
				"message_id", record.MessageID, "views", views, "threshold", p.minViews)
			return
		}

		p.logger.Debug("waiting on audience engagement", "views", views, "threshold", p.minViews)
		if !sleepCtx(ctx, p.pollInterval) {
			return
		}
	}
}
