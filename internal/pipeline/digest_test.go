package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"ecopulse/internal/runtime"
)

func newTestDigest(t *testing.T, sink *stubSink, transformer *stubTransformer, buffer *AggregationBuffer) *DigestScheduler {
	t.Helper()

	state := runtime.New(true, false)
	formatter := testFormatter(t, transformer)
	sender := NewSender(sink, state, NewDedupCache(10), discardLogger())
	return NewDigestScheduler(state, buffer, formatter, sender, 1, discardLogger())
}

func TestSynthesizeJoinsEntriesInOrder(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	transformer := &stubTransformer{reply: "📊 hourly digest body"}
	buffer := NewAggregationBuffer()
	buffer.Append("first headline")
	buffer.Append("second headline")
	buffer.Append("third headline")
	d := newTestDigest(t, sink, transformer, buffer)

	if !d.Synthesize(context.Background()) {
		t.Fatal("synthesis with a populated buffer must publish")
	}

	if got := transformer.inputs[0]; got != "first headline\nsecond headline\nthird headline" {
		t.Fatalf("entries not joined in insertion order: %q", got)
	}
	sent := sink.sentTexts()
	if len(sent) != 1 || !strings.Contains(sent[0], "📊 hourly digest body") {
		t.Fatalf("unexpected sends: %v", sent)
	}
	if buffer.Len() != 0 {
		t.Fatalf("buffer length = %d after synthesis, want 0", buffer.Len())
	}
}

func TestSynthesizeEmptyBufferEmitsNothing(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	transformer := &stubTransformer{reply: "unused"}
	d := newTestDigest(t, sink, transformer, NewAggregationBuffer())

	if d.Synthesize(context.Background()) {
		t.Fatal("empty buffer must not synthesize")
	}
	if len(sink.sentTexts()) != 0 {
		t.Fatal("empty buffer must not reach the sink")
	}
	if transformer.calls() != 0 {
		t.Fatal("empty buffer must not invoke the transformer")
	}
}

func TestSynthesizeStartsNextGeneration(t *testing.T) {
	t.Parallel()

	sink := &stubSink{}
	transformer := &stubTransformer{reply: "digest"}
	buffer := NewAggregationBuffer()
	buffer.Append("old entry")
	d := newTestDigest(t, sink, transformer, buffer)

	d.Synthesize(context.Background())
	buffer.Append("new entry")

	if !d.Synthesize(context.Background()) {
		t.Fatal("second generation must synthesize")
	}
	if got := transformer.inputs[1]; got != "new entry" {
		t.Fatalf("second generation input = %q, want only the new entry", got)
	}
}

func TestNextHourBoundary(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	cases := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			name: "mid hour",
			at:   time.Date(2026, 8, 28, 10, 17, 30, 0, loc),
			want: time.Date(2026, 8, 28, 11, 0, 0, 0, loc),
		},
		{
			name: "exact hour rolls forward",
			at:   time.Date(2026, 8, 28, 10, 0, 0, 0, loc),
			want: time.Date(2026, 8, 28, 11, 0, 0, 0, loc),
		},
		{
			name: "end of day",
			at:   time.Date(2026, 8, 28, 23, 59, 59, 0, loc),
			want: time.Date(2026, 8, 29, 0, 0, 0, 0, loc),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := nextHourBoundary(tc.at); !got.Equal(tc.want) {
				t.Fatalf("nextHourBoundary(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}
