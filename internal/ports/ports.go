package ports

import (
	"context"
	"fmt"
	"time"

	"ecopulse/internal/domain"
)

// RateLimitError is raised by a Sink when the transport demands a pause
// before the next send. The caller sleeps RetryAfter plus a small margin and
// retries exactly once.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Sink delivers formatted payloads to a destination channel and reports the
// engagement metric of previously sent messages.
type Sink interface {
	Send(ctx context.Context, channelID int64, text string) (int64, error)
	EngagementCount(ctx context.Context, channelID int64, messageID int64) (int, error)
}

// Transformer calls the external text-transformation service with a
// task-specific instruction. The credential is supplied per call; rotation
// and quarantine are owned by the caller.
type Transformer interface {
	Transform(ctx context.Context, instruction, text, credential string) (string, error)
}

// SourceEvent is a single inbound item delivered by a Source.
type SourceEvent struct {
	Role      domain.Role
	MessageID int64
	Text      string
	// Service marks administrative/state-change events, which the pipeline
	// ignores.
	Service bool
}

// Source streams inbound events to the handler until ctx is cancelled.
type Source interface {
	Run(ctx context.Context, handle func(context.Context, SourceEvent)) error
}
