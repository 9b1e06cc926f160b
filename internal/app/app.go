package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"ecopulse/internal/config"
	"ecopulse/internal/control"
	"ecopulse/internal/credentials"
	"ecopulse/internal/domain"
	"ecopulse/internal/infrastructure/llm"
	"ecopulse/internal/infrastructure/telegram"
	"ecopulse/internal/logging"
	"ecopulse/internal/pipeline"
	"ecopulse/internal/ports"
	"ecopulse/internal/runtime"
)

// Application wires configuration to the pipeline components and owns the
// lifecycle of the background tasks.
type Application struct {
	cfg     config.Config
	cfgPath string
	logger  *slog.Logger
}

// New builds a runnable application instance. cfgPath may be empty; when set
// the file is watched for runtime-toggle changes.
func New(cfg config.Config, cfgPath string, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.File)
	}
	return &Application{cfg: cfg, cfgPath: cfgPath, logger: baseLogger}
}

// Run resolves channel bindings, assembles the pipeline, and blocks until
// ctx is cancelled. Channel-resolution failure is the one fatal error class:
// it aborts startup.
func (a *Application) Run(ctx context.Context) error {
	cfg := a.cfg

	sink := telegram.NewClient(cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken,
		a.logger.With("component", "telegram"))

	bindings, roles, err := a.resolveChannels(ctx, sink)
	if err != nil {
		return fmt.Errorf("resolve channels: %w", err)
	}
	a.logger.Info("channels bound", "control", bindings.Control, "target", bindings.Target)

	pool, err := credentials.NewPool(cfg.OpenAI.APIKeys, cfg.OpenAI.KeyCooldown(),
		a.logger.With("component", "credentials"))
	if err != nil {
		return fmt.Errorf("credential pool: %w", err)
	}

	state := runtime.New(cfg.StartActive, cfg.DryRun)
	dedupe := pipeline.NewDedupCache(cfg.Publication.DedupLimit)
	backlog := pipeline.NewBacklogQueue()
	buffer := pipeline.NewAggregationBuffer()

	transformer := llm.NewClient(cfg.OpenAI)
	formatter := pipeline.NewFormatter(transformer, pool, pipeline.FormatterOptions{
		Signature:         cfg.Publication.Signature,
		AnalysisSignature: cfg.Publication.AnalysisSignature,
		DigestSignature:   cfg.Digest.Signature,
		Watermark:         cfg.Publication.Watermark,
		MaxAttempts:       cfg.OpenAI.MaxAttempts,
		RetryDelay:        cfg.OpenAI.RetryDelay(),
	}, a.logger.With("component", "formatter"))

	sender := pipeline.NewSender(sink, state, dedupe, a.logger.With("component", "sender"))

	gate := pipeline.NewGate(sink, bindings.Target,
		cfg.Publication.ImmediateMinViews, cfg.Publication.ImmediateTimeout(),
		a.logger.With("component", "gate"))

	dispatcher := pipeline.NewDispatcher(pipeline.DispatcherDeps{
		State:            state,
		Gate:             gate,
		Backlog:          backlog,
		Buffer:           buffer,
		Formatter:        formatter,
		Sender:           sender,
		TargetChannel:    bindings.Target,
		AnalysisChannel:  bindings.AnalysisTarget,
		AnalysisInterval: cfg.Publication.AnalysisInterval(),
		Logger:           a.logger.With("component", "dispatcher"),
	})

	publisher := pipeline.NewScheduledPublisher(pipeline.PublisherDeps{
		State:        state,
		Backlog:      backlog,
		Formatter:    formatter,
		Sender:       sender,
		Sink:         sink,
		ChannelID:    bindings.Target,
		MinViews:     cfg.Publication.ScheduledMinViews,
		PollInterval: cfg.Publication.PollInterval(),
		Cooldown:     cfg.Publication.DrainCooldown(),
		MaxWait:      cfg.Publication.MaxEngagementWait(),
		Logger:       a.logger.With("component", "publisher"),
	})

	digestTarget := bindings.DigestTarget
	if digestTarget == 0 {
		digestTarget = bindings.Target
	}
	digest := pipeline.NewDigestScheduler(state, buffer, formatter, sender, digestTarget,
		a.logger.With("component", "digest"))

	commands := control.NewHandler(control.HandlerDeps{
		State:    state,
		Pool:     pool,
		Backlog:  backlog,
		Buffer:   buffer,
		Dedupe:   dedupe,
		Digest:   digest,
		Channels: bindings,
		Logger:   a.logger.With("component", "control"),
	})

	source := telegram.NewLongPollSource(sink, roles, a.logger.With("component", "source"))

	handle := func(ctx context.Context, ev ports.SourceEvent) {
		if ev.Role == domain.RoleControl {
			if ev.Service {
				return
			}
			reply := commands.Execute(ctx, ev.Text)
			// Control replies bypass dry-run and dedup: the operator always
			// gets exactly one answer.
			if _, err := sink.Send(ctx, bindings.Control, reply); err != nil {
				a.logger.Error("control reply failed", "error", err)
			}
			return
		}
		dispatcher.Handle(ctx, ev)
	}

	var wg sync.WaitGroup
	supervise(ctx, &wg, a.logger, "publisher", publisher.Run)
	supervise(ctx, &wg, a.logger, "digest", digest.Run)
	supervise(ctx, &wg, a.logger, "source", func(ctx context.Context) {
		_ = source.Run(ctx, handle)
	})

	if a.cfgPath != "" {
		supervise(ctx, &wg, a.logger, "config-watch", func(ctx context.Context) {
			_ = config.Watch(ctx, a.cfgPath, a.logger.With("component", "config"), func(updated config.Config) {
				state.SetDryRun(updated.DryRun)
			})
		})
	}

	a.logger.Info("pipeline ready, awaiting operator commands",
		"active", state.Active(), "dry_run", state.DryRun())

	<-ctx.Done()
	a.logger.Info("shutting down")
	wg.Wait()
	return nil
}

// resolveChannels binds every configured channel reference. Source, target,
// and control are required; the rest only activate their lane when present.
func (a *Application) resolveChannels(ctx context.Context, sink *telegram.Client) (control.ChannelBindings, map[int64]domain.Role, error) {
	channels := a.cfg.Telegram.Channels
	var bindings control.ChannelBindings
	var err error

	if bindings.Control, err = sink.ResolveChannel(ctx, channels.Control); err != nil {
		return bindings, nil, err
	}
	if bindings.Source, err = sink.ResolveChannel(ctx, channels.Source); err != nil {
		return bindings, nil, err
	}
	if bindings.Target, err = sink.ResolveChannel(ctx, channels.Target); err != nil {
		return bindings, nil, err
	}
	if channels.SourceSecond != "" {
		if bindings.SourceSecond, err = sink.ResolveChannel(ctx, channels.SourceSecond); err != nil {
			return bindings, nil, err
		}
	}
	if channels.AnalysisSource != "" {
		if bindings.AnalysisSource, err = sink.ResolveChannel(ctx, channels.AnalysisSource); err != nil {
			return bindings, nil, err
		}
	}
	if channels.AnalysisTarget != "" {
		if bindings.AnalysisTarget, err = sink.ResolveChannel(ctx, channels.AnalysisTarget); err != nil {
			return bindings, nil, err
		}
	}
	if channels.DigestSource != "" {
		if bindings.DigestSource, err = sink.ResolveChannel(ctx, channels.DigestSource); err != nil {
			return bindings, nil, err
		}
	}
	if channels.DigestTarget != "" {
		if bindings.DigestTarget, err = sink.ResolveChannel(ctx, channels.DigestTarget); err != nil {
			return bindings, nil, err
		}
	}

	roles := map[int64]domain.Role{
		bindings.Source:  domain.RoleUrgent,
		bindings.Control: domain.RoleControl,
	}
	if bindings.SourceSecond != 0 {
		roles[bindings.SourceSecond] = domain.RoleBacklog
	}
	if bindings.AnalysisSource != 0 {
		roles[bindings.AnalysisSource] = domain.RoleAnalysis
	}
	if bindings.DigestSource != 0 {
		roles[bindings.DigestSource] = domain.RoleDigest
	}

	return bindings, roles, nil
}
