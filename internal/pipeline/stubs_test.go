package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ecopulse/internal/credentials"
)

// stubSink records sends and serves canned engagement numbers.
type stubSink struct {
	mu       sync.Mutex
	sent     []string
	channels []int64
	nextID   int64
	sendErr  []error
	views    []int
	viewsErr error
}

func (s *stubSink) Send(_ context.Context, channelID int64, text string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sendErr) > 0 {
		err := s.sendErr[0]
		s.sendErr = s.sendErr[1:]
		if err != nil {
			return 0, err
		}
	}
	s.nextID++
	s.sent = append(s.sent, text)
	s.channels = append(s.channels, channelID)
	return s.nextID, nil
}

func (s *stubSink) EngagementCount(_ context.Context, _ int64, _ int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.viewsErr != nil {
		return 0, s.viewsErr
	}
	if len(s.views) == 0 {
		return 0, nil
	}
	v := s.views[0]
	if len(s.views) > 1 {
		s.views = s.views[1:]
	}
	return v, nil
}

func (s *stubSink) sentTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	copy(out, s.sent)
	return out
}

// stubTransformer returns a canned reply or error and records instructions.
type stubTransformer struct {
	mu           sync.Mutex
	reply        string
	err          error
	instructions []string
	inputs       []string
	keys         []string
}

func (s *stubTransformer) Transform(_ context.Context, instruction, text, credential string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instructions = append(s.instructions, instruction)
	s.inputs = append(s.inputs, text)
	s.keys = append(s.keys, credential)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubTransformer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instructions)
}

func testPool(t *testing.T) *credentials.Pool {
	t.Helper()
	pool, err := credentials.NewPool([]string{"test-key-a", "test-key-b"}, time.Hour, discardLogger())
	if err != nil {
		t.Fatalf("NewPool error: %v", err)
	}
	return pool
}

func testFormatter(t *testing.T, transformer *stubTransformer) *Formatter {
	t.Helper()
	return NewFormatter(transformer, testPool(t), FormatterOptions{
		Signature:         "— EcoPulse",
		AnalysisSignature: "— Analysis",
		DigestSignature:   "— Hourly Brief",
		Watermark:         " ",
		MaxAttempts:       3,
		RetryDelay:        time.Millisecond,
	}, discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
