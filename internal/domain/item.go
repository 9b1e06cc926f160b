package domain

import "time"

// Role tags an inbound item with the source it arrived from, which in turn
// determines the lanes it is eligible for.
type Role string

const (
	// RoleUrgent marks items from the primary source, candidates for the
	// immediate lane.
	RoleUrgent Role = "urgent"
	// RoleBacklog marks items from the secondary source, scheduled lane only.
	RoleBacklog Role = "backlog"
	// RoleDigest marks items feeding the hourly digest buffer.
	RoleDigest Role = "digest"
	// RoleAnalysis marks items for the analysis channel.
	RoleAnalysis Role = "analysis"
	// RoleControl marks operator commands.
	RoleControl Role = "control"
)

// Item is a single unit of intake. It is created once on arrival and consumed
// exactly once by the immediate path, the backlog queue, or the aggregation
// buffer.
type Item struct {
	MessageID  int64
	Raw        string
	Cleaned    string
	Role       Role
	ReceivedAt time.Time
}

// Category labels a successful publication for stats accounting.
type Category string

const (
	CategoryEconomic  Category = "economic"
	CategoryImmediate Category = "immediate"
	CategoryScheduled Category = "scheduled"
	CategoryAnalysis  Category = "analysis"
	CategoryDigest    Category = "digest"
)

// PublicationRecord remembers the last successful send of one publication
// lane. A zero MessageID means the lane has not published yet.
type PublicationRecord struct {
	MessageID int64
	SentAt    time.Time
}

// Emoji markers prepended to outgoing posts per lane.
const (
	EmojiImmediate = "🚨"
	EmojiScheduled = "📝"
	EmojiAlert     = "⚠️🚨"
	EmojiDigest    = "⏰"
)
