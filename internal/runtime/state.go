package runtime

import (
	"sync"
	"time"

	"ecopulse/internal/domain"
)

// Lane identifies one togglable publication lane.
type Lane string

const (
	LaneEconomic  Lane = "economic"
	LaneImmediate Lane = "immediate"
	LaneAnalysis  Lane = "analysis"
	LaneScheduled Lane = "scheduled"
	LaneDigest    Lane = "digest"
)

// Stats is a snapshot of the monotonic publication counters.
type Stats struct {
	Posts      int64
	PerLane    map[domain.Category]int64
	RateLimits int64
}

// State is the single shared mutable-state object of the pipeline: the
// master switch, per-lane toggles, dry-run mode, publication records, and
// stats counters. Every component receives it by reference; all access is
// serialized on one mutex. There are no ambient globals.
type State struct {
	mu sync.Mutex

	active bool
	lanes  map[Lane]bool
	dryRun bool

	posts      int64
	perLane    map[domain.Category]int64
	rateLimits int64

	urgentRecord     domain.PublicationRecord
	scheduledRecord  domain.PublicationRecord
	analysisLastSent time.Time
}

// New builds runtime state with every lane enabled. The pipeline itself
// starts inactive unless startActive is set; the operator flips it on.
func New(startActive, dryRun bool) *State {
	return &State{
		active: startActive,
		dryRun: dryRun,
		lanes: map[Lane]bool{
			LaneEconomic:  true,
			LaneImmediate: true,
			LaneAnalysis:  true,
			LaneScheduled: true,
			LaneDigest:    true,
		},
		perLane: map[domain.Category]int64{},
	}
}

// Active reports the master switch.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive flips the master switch.
func (s *State) SetActive(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = on
}

// LaneEnabled reports a single lane toggle.
func (s *State) LaneEnabled(lane Lane) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lanes[lane]
}

// SetLane flips a single lane toggle.
func (s *State) SetLane(lane Lane, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lanes[lane] = on
}

// DryRun reports whether sends are short-circuited.
func (s *State) DryRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dryRun
}

// SetDryRun flips dry-run mode.
func (s *State) SetDryRun(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dryRun = on
}

// CountPublished bumps the per-category counter and the grand total.
func (s *State) CountPublished(category domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perLane[category]++
	s.posts++
}

// CountRateLimit records one sink rate-limit event.
func (s *State) CountRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimits++
}

// StatsSnapshot copies the counters for observability.
func (s *State) StatsSnapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	perLane := make(map[domain.Category]int64, len(s.perLane))
	for category, count := range s.perLane {
		perLane[category] = count
	}
	return Stats{Posts: s.posts, PerLane: perLane, RateLimits: s.rateLimits}
}

// UrgentRecord reads the urgent-lane publication record.
func (s *State) UrgentRecord() domain.PublicationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urgentRecord
}

// SetUrgentRecord stores the urgent-lane record after a successful send.
func (s *State) SetUrgentRecord(messageID int64, sentAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urgentRecord = domain.PublicationRecord{MessageID: messageID, SentAt: sentAt}
}

// ScheduledRecord reads the scheduled-lane publication record.
func (s *State) ScheduledRecord() domain.PublicationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduledRecord
}

// SetScheduledRecord stores the scheduled-lane record after a successful send.
func (s *State) SetScheduledRecord(messageID int64, sentAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduledRecord = domain.PublicationRecord{MessageID: messageID, SentAt: sentAt}
}

// AnalysisLastSent reads the last analysis-lane send time.
func (s *State) AnalysisLastSent() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analysisLastSent
}

// SetAnalysisLastSent stores the last analysis-lane send time.
func (s *State) SetAnalysisLastSent(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisLastSent = at
}
