package control

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ecopulse/internal/credentials"
	"ecopulse/internal/domain"
	"ecopulse/internal/pipeline"
	"ecopulse/internal/runtime"
)

type fakeSink struct {
	sent []string
}

func (f *fakeSink) Send(_ context.Context, _ int64, text string) (int64, error) {
	f.sent = append(f.sent, text)
	return int64(len(f.sent)), nil
}

func (f *fakeSink) EngagementCount(context.Context, int64, int64) (int, error) {
	return 0, nil
}

type fakeTransformer struct{}

func (fakeTransformer) Transform(_ context.Context, _, _, _ string) (string, error) {
	return "digest body", nil
}

type handlerFixture struct {
	handler *Handler
	state   *runtime.State
	backlog *pipeline.BacklogQueue
	buffer  *pipeline.AggregationBuffer
	dedupe  *pipeline.DedupCache
	sink    *fakeSink
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := credentials.NewPool([]string{"test-key-a"}, time.Hour, logger)
	if err != nil {
		t.Fatalf("NewPool error: %v", err)
	}

	state := runtime.New(true, false)
	backlog := pipeline.NewBacklogQueue()
	buffer := pipeline.NewAggregationBuffer()
	dedupe := pipeline.NewDedupCache(10)
	sink := &fakeSink{}

	formatter := pipeline.NewFormatter(fakeTransformer{}, pool, pipeline.FormatterOptions{
		Signature:       "— EcoPulse",
		DigestSignature: "— Hourly Brief",
		Watermark:       " ",
		MaxAttempts:     1,
		RetryDelay:      time.Millisecond,
	}, logger)
	sender := pipeline.NewSender(sink, state, dedupe, logger)
	digest := pipeline.NewDigestScheduler(state, buffer, formatter, sender, 1, logger)

	handler := NewHandler(HandlerDeps{
		State:    state,
		Pool:     pool,
		Backlog:  backlog,
		Buffer:   buffer,
		Dedupe:   dedupe,
		Digest:   digest,
		Channels: ChannelBindings{Source: 100, Target: 200, Control: 300},
		Logger:   logger,
	})

	return &handlerFixture{
		handler: handler,
		state:   state,
		backlog: backlog,
		buffer:  buffer,
		dedupe:  dedupe,
		sink:    sink,
	}
}

func TestExecuteEnableDisable(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	ctx := context.Background()

	fx.handler.Execute(ctx, "disable")
	if fx.state.Active() {
		t.Fatal("disable must deactivate the pipeline")
	}
	fx.handler.Execute(ctx, "enable")
	if !fx.state.Active() {
		t.Fatal("enable must reactivate the pipeline")
	}
}

func TestExecuteLaneToggle(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	ctx := context.Background()

	reply := fx.handler.Execute(ctx, "scheduled off")
	if fx.state.LaneEnabled(runtime.LaneScheduled) {
		t.Fatal("scheduled lane must be off")
	}
	if !strings.Contains(reply, "Scheduled lane") || !strings.Contains(reply, "disabled") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	fx.handler.Execute(ctx, "scheduled on")
	if !fx.state.LaneEnabled(runtime.LaneScheduled) {
		t.Fatal("scheduled lane must be back on")
	}
}

func TestExecuteDigestNow(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	ctx := context.Background()

	// Empty buffer: the reply says so and nothing is sent.
	reply := fx.handler.Execute(ctx, "digest now")
	if !strings.Contains(reply, "empty") {
		t.Fatalf("unexpected reply for empty buffer: %q", reply)
	}
	if len(fx.sink.sent) != 0 {
		t.Fatal("empty buffer must not publish")
	}

	fx.buffer.Append("oil prices rallied")
	reply = fx.handler.Execute(ctx, "digest now")
	if !strings.Contains(reply, "published") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(fx.sink.sent) != 1 {
		t.Fatalf("sink received %d sends, want 1", len(fx.sink.sent))
	}
}

func TestExecuteDigestNowRequiresLane(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	ctx := context.Background()

	fx.buffer.Append("entry that must survive")
	fx.handler.Execute(ctx, "digest off")

	reply := fx.handler.Execute(ctx, "digest now")
	if !strings.Contains(reply, "disabled") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if fx.buffer.Len() != 1 {
		t.Fatal("disabled digest lane must not drain the buffer")
	}
}

func TestExecuteClearQueues(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	fx.backlog.Push(domain.Item{MessageID: 1, Cleaned: "one"})
	fx.backlog.Push(domain.Item{MessageID: 2, Cleaned: "two"})
	fx.buffer.Append("three")

	reply := fx.handler.Execute(context.Background(), "clear queues")
	if !strings.Contains(reply, "3") {
		t.Fatalf("reply should report 3 cleared items: %q", reply)
	}
	if fx.backlog.Len() != 0 || fx.buffer.Len() != 0 {
		t.Fatal("queues must be empty after clear")
	}
}

func TestExecuteResetDedup(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	fx.dedupe.Admit("payload one")
	fx.dedupe.Admit("payload two")

	reply := fx.handler.Execute(context.Background(), "reset dedup")
	if !strings.Contains(reply, "2") {
		t.Fatalf("reply should report 2 cleared records: %q", reply)
	}
	if !fx.dedupe.Admit("payload one") {
		t.Fatal("cleared payload must be admissible again")
	}
}

func TestExecuteDryRunToggle(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	ctx := context.Background()

	fx.handler.Execute(ctx, "dry-run on")
	if !fx.state.DryRun() {
		t.Fatal("dry-run must be on")
	}
	fx.handler.Execute(ctx, "dry-run off")
	if fx.state.DryRun() {
		t.Fatal("dry-run must be off")
	}
}

func TestExecuteStatusReflectsState(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	ctx := context.Background()
	fx.handler.Execute(ctx, "digest off")
	fx.backlog.Push(domain.Item{MessageID: 1, Cleaned: "queued"})

	reply := fx.handler.Execute(ctx, "status")
	if !strings.Contains(reply, "backlog queue: 1") {
		t.Fatalf("status must show queue depth: %q", reply)
	}
	if !strings.Contains(reply, "digest: ⛔") {
		t.Fatalf("status must show the disabled digest lane: %q", reply)
	}
}

func TestExecuteKeysMasksCredentials(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)

	reply := fx.handler.Execute(context.Background(), "keys")
	if strings.Contains(reply, "test-key-a") {
		t.Fatalf("reply must never carry a full credential: %q", reply)
	}
	if !strings.Contains(reply, "healthy: 1") {
		t.Fatalf("unexpected keys reply: %q", reply)
	}
}

func TestExecuteUnknownAndHelp(t *testing.T) {
	t.Parallel()

	fx := newHandlerFixture(t)
	ctx := context.Background()

	if reply := fx.handler.Execute(ctx, "make me a sandwich"); !strings.Contains(reply, "Unknown command") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if reply := fx.handler.Execute(ctx, "help"); !strings.Contains(reply, "Commands") {
		t.Fatalf("unexpected reply: %q", reply)
	}
}
