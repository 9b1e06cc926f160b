package credentials

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Status is an observability snapshot of the pool.
type Status struct {
	Total       int
	Healthy     int
	Quarantined int
	Usage       map[string]int64
}

// Pool manages the credentials used against the transformation service. A
// failing credential is quarantined for a cooldown; selection round-robins
// over the healthy subset. When every credential is quarantined the pool
// force-resets all of them rather than blocking: publication must never
// stall on credential exhaustion.
type Pool struct {
	mu            sync.Mutex
	keys          []string
	cursor        int
	quarantinedAt map[string]time.Time
	cooldown      time.Duration
	usage         map[string]int64
	now           func() time.Time
	logger        *slog.Logger
}

// NewPool validates and registers the credential set.
func NewPool(keys []string, cooldown time.Duration, logger *slog.Logger) (*Pool, error) {
	valid := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			valid = append(valid, key)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no usable credentials provided")
	}
	if cooldown <= 0 {
		cooldown = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("credential pool initialized", "keys", len(valid))
	return &Pool{
		keys:          valid,
		quarantinedAt: map[string]time.Time{},
		cooldown:      cooldown,
		usage:         map[string]int64{},
		now:           time.Now,
		logger:        logger,
	}, nil
}

// Acquire returns the next healthy credential in round-robin order. The
// cursor advances on every call regardless of how the healthy subset shifts
// between calls.
func (p *Pool) Acquire() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := p.healthyLocked()
	if len(healthy) == 0 {
		p.logger.Warn("all credentials quarantined, force-resetting pool")
		p.quarantinedAt = map[string]time.Time{}
		healthy = p.keys
	}

	key := healthy[p.cursor%len(healthy)]
	p.cursor++
	p.usage[key]++
	p.logger.Debug("credential acquired", "key", Mask(key), "usage", p.usage[key])
	return key
}

// ReportFailure quarantines the credential starting now. Repeated reports for
// the same credential just refresh the quarantine timestamp.
func (p *Pool) ReportFailure(key, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.quarantinedAt[key] = p.now()
	healthy := len(p.healthyLocked())
	p.logger.Warn("credential quarantined",
		"key", Mask(key), "reason", reason, "healthy", healthy, "total", len(p.keys))
}

// Status reports pool health and per-credential usage counts. Usage counters
// only grow; they reset with the process.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := len(p.healthyLocked())
	usage := make(map[string]int64, len(p.usage))
	for key, count := range p.usage {
		usage[Mask(key)] = count
	}

	return Status{
		Total:       len(p.keys),
		Healthy:     healthy,
		Quarantined: len(p.keys) - healthy,
		Usage:       usage,
	}
}

func (p *Pool) healthyLocked() []string {
	now := p.now()
	healthy := make([]string, 0, len(p.keys))
	for _, key := range p.keys {
		failedAt, quarantined := p.quarantinedAt[key]
		if !quarantined || now.Sub(failedAt) > p.cooldown {
			healthy = append(healthy, key)
		}
	}
	return healthy
}

// Mask shortens a credential for log output.
func Mask(key string) string {
	if len(key) <= 5 {
		return key + "..."
	}
	return key[:5] + "..."
}
