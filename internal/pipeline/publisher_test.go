package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ecopulse/internal/domain"
	"ecopulse/internal/runtime"
)

func newTestPublisher(t *testing.T, sink *stubSink, state *runtime.State, backlog *BacklogQueue, maxWait time.Duration) *ScheduledPublisher {
	t.Helper()

	transformer := &stubTransformer{reply: "scheduled body"}
	formatter := testFormatter(t, transformer)
	sender := NewSender(sink, state, NewDedupCache(10), discardLogger())

	return NewScheduledPublisher(PublisherDeps{
		State:        state,
		Backlog:      backlog,
		Formatter:    formatter,
		Sender:       sender,
		Sink:         sink,
		ChannelID:    1,
		MinViews:     800,
		PollInterval: time.Millisecond,
		Cooldown:     time.Millisecond,
		MaxWait:      maxWait,
		Logger:       discardLogger(),
	})
}

func backlogWith(texts ...string) *BacklogQueue {
	q := NewBacklogQueue()
	for i, text := range texts {
		q.Push(domain.Item{
			MessageID:  int64(i + 1),
			Raw:        text,
			Cleaned:    text,
			Role:       domain.RoleBacklog,
			ReceivedAt: time.Now(),
		})
	}
	return q
}

func TestPublisherStepPublishesFromBacklog(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	state := runtime.New(true, false)
	backlog := backlogWith("European equities closed mixed on Tuesday")
	p := newTestPublisher(t, sink, state, backlog, 0)

	p.step(context.Background())

	if got := len(sink.sentTexts()); got != 1 {
		t.Fatalf("sink received %d sends, want 1", got)
	}
	if backlog.Len() != 0 {
		t.Fatalf("backlog length = %d after step, want 0", backlog.Len())
	}
	if state.ScheduledRecord().MessageID == 0 {
		t.Fatal("scheduled record must be updated after a successful send")
	}
}

func TestPublisherWaitsUntilViewsThreshold(t *testing.T) {
	t.Parallel()

	sink := &stubSink{views: []int{100, 900}}
	state := runtime.New(true, false)
	state.SetScheduledRecord(7, time.Now())
	backlog := backlogWith("Crude inventories fell more than expected")
	p := newTestPublisher(t, sink, state, backlog, 0)

	p.step(context.Background())

	if got := len(sink.sentTexts()); got != 1 {
		t.Fatalf("sink received %d sends, want 1", got)
	}
	// The first poll saw 100 views and was consumed; the second saw 900 and
	// opened the lane.
	if len(sink.views) != 1 {
		t.Fatalf("expected two engagement polls, views left: %v", sink.views)
	}
}

func TestPublisherProceedsWhenEngagementPollFails(t *testing.T) {
	t.Parallel()

	sink := &stubSink{viewsErr: fmt.Errorf("sink unreachable")}
	state := runtime.New(true, false)
	state.SetScheduledRecord(7, time.Now())
	backlog := backlogWith("Gold steadied after the overnight selloff")
	p := newTestPublisher(t, sink, state, backlog, 0)

	p.step(context.Background())

	if got := len(sink.sentTexts()); got != 1 {
		t.Fatalf("a failed poll must not stall the lane, got %d sends", got)
	}
}

func TestPublisherWaitCeilingUnblocksLane(t *testing.T) {
	t.Parallel()

	// Views never reach the threshold; the ceiling expires instead.
	sink := &stubSink{views: []int{100}}
	state := runtime.New(true, false)
	state.SetScheduledRecord(7, time.Now())
	backlog := backlogWith("Treasury yields drifted lower through the session")
	p := newTestPublisher(t, sink, state, backlog, time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.step(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("step did not return, wait ceiling ignored")
	}
	if got := len(sink.sentTexts()); got != 1 {
		t.Fatalf("sink received %d sends, want 1", got)
	}
}

func TestPublisherDisabledLaneLeavesBacklogUntouched(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	state := runtime.New(true, false)
	state.SetLane(runtime.LaneScheduled, false)
	backlog := backlogWith("Retail sales surprise to the upside")
	p := newTestPublisher(t, sink, state, backlog, 0)

	// A cancelled context turns the idle sleep into a no-op.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.step(ctx)

	if backlog.Len() != 1 {
		t.Fatalf("disabled lane must not consume the backlog, length = %d", backlog.Len())
	}
	if len(sink.sentTexts()) != 0 {
		t.Fatal("disabled lane must not publish")
	}
}

func TestPublisherDropsItemThatFormatsEmpty(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	state := runtime.New(true, false)
	backlog := backlogWith("https://example.com")
	p := newTestPublisher(t, sink, state, backlog, 0)

	p.step(context.Background())

	if len(sink.sentTexts()) != 0 {
		t.Fatal("meaningless item must be dropped, not sent")
	}
	if backlog.Len() != 0 {
		t.Fatal("dropped item must not be re-queued")
	}
	if state.ScheduledRecord().MessageID != 0 {
		t.Fatal("scheduled record must stay untouched for dropped items")
	}
}
