package pipeline

import (
	"context"
	"log/slog"
	"time"

	"ecopulse/internal/domain"
	"ecopulse/internal/ports"
	"ecopulse/internal/runtime"
	"ecopulse/internal/textproc"
)

// Dispatcher routes each inbound item to exactly one of the three paths:
// immediate publish, backlog queue, or aggregation buffer. Administrative
// events and items arriving while the pipeline is inactive are ignored.
type Dispatcher struct {
	state            *runtime.State
	gate             *Gate
	backlog          *BacklogQueue
	buffer           *AggregationBuffer
	formatter        *Formatter
	sender           *Sender
	targetChannel    int64
	analysisChannel  int64
	analysisInterval time.Duration
	now              func() time.Time
	logger           *slog.Logger
}

// DispatcherDeps wires the dispatcher's collaborators.
type DispatcherDeps struct {
	State            *runtime.State
	Gate             *Gate
	Backlog          *BacklogQueue
	Buffer           *AggregationBuffer
	Formatter        *Formatter
	Sender           *Sender
	TargetChannel    int64
	AnalysisChannel  int64
	AnalysisInterval time.Duration
	Logger           *slog.Logger
}

// NewDispatcher constructs the routing component.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		state:            deps.State,
		gate:             deps.Gate,
		backlog:          deps.Backlog,
		buffer:           deps.Buffer,
		formatter:        deps.Formatter,
		sender:           deps.Sender,
		targetChannel:    deps.TargetChannel,
		analysisChannel:  deps.AnalysisChannel,
		analysisInterval: deps.AnalysisInterval,
		now:              time.Now,
		logger:           logger,
	}
}

// Handle processes one source event. Control traffic is owned by the command
// handler and skipped here.
func (d *Dispatcher) Handle(ctx context.Context, ev ports.SourceEvent) {
	if ev.Role == domain.RoleControl || ev.Service {
		return
	}
	if !d.state.Active() {
		return
	}

	switch ev.Role {
	case domain.RoleUrgent:
		d.handleNews(ctx, ev, domain.EmojiImmediate)
	case domain.RoleBacklog:
		d.handleNews(ctx, ev, domain.EmojiScheduled)
	case domain.RoleDigest:
		d.handleDigestSource(ev)
	case domain.RoleAnalysis:
		d.handleAnalysis(ctx, ev)
	}
}

func (d *Dispatcher) handleNews(ctx context.Context, ev ports.SourceEvent, emoji string) {
	cleaned := textproc.Clean(ev.Text)
	item := domain.Item{
		MessageID:  ev.MessageID,
		Raw:        ev.Text,
		Cleaned:    cleaned,
		Role:       ev.Role,
		ReceivedAt: d.now(),
	}

	if textproc.IsStructuredMetric(cleaned) {
		if !d.state.LaneEnabled(runtime.LaneEconomic) {
			d.logger.Info("economic lane disabled, dropping data release", "message_id", ev.MessageID)
			return
		}
		text := d.formatter.Format(ctx, cleaned, emoji, false)
		if id, ok := d.sender.Publish(ctx, d.targetChannel, text, domain.CategoryEconomic); ok && id != 0 {
			d.state.SetUrgentRecord(id, d.now())
		}
		return
	}

	if d.state.LaneEnabled(runtime.LaneImmediate) && textproc.MatchesKeyword(cleaned) {
		if d.gate.CanPublish(ctx, d.state.UrgentRecord()) {
			text := d.formatter.Format(ctx, cleaned, emoji, false)
			if id, ok := d.sender.Publish(ctx, d.targetChannel, text, domain.CategoryImmediate); ok && id != 0 {
				d.state.SetUrgentRecord(id, d.now())
			}
		} else {
			d.backlog.Push(item)
			d.logger.Info("gate closed, deferring to backlog", "message_id", ev.MessageID)
		}
		return
	}

	d.backlog.Push(item)
	d.logger.Info("queued for scheduled lane", "message_id", ev.MessageID)
}

func (d *Dispatcher) handleDigestSource(ev ports.SourceEvent) {
	if !d.state.LaneEnabled(runtime.LaneDigest) {
		return
	}
	cleaned := textproc.Clean(ev.Text)
	if !textproc.IsMeaningful(cleaned) {
		return
	}
	d.buffer.Append(cleaned)
	d.logger.Info("buffered for hourly digest", "message_id", ev.MessageID)
}

func (d *Dispatcher) handleAnalysis(ctx context.Context, ev ports.SourceEvent) {
	if !d.state.LaneEnabled(runtime.LaneAnalysis) || d.analysisChannel == 0 {
		return
	}
	if d.now().Sub(d.state.AnalysisLastSent()) < d.analysisInterval {
		return
	}

	cleaned := textproc.Clean(ev.Text)
	text := d.formatter.Analysis(ctx, cleaned)
	if _, ok := d.sender.Publish(ctx, d.analysisChannel, text, domain.CategoryAnalysis); ok {
		d.state.SetAnalysisLastSent(d.now())
	}
}

func emojiForRole(role domain.Role) string {
	if role == domain.RoleUrgent {
		return domain.EmojiImmediate
	}
	return domain.EmojiScheduled
}
