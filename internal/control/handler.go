package control

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ecopulse/internal/credentials"
	"ecopulse/internal/domain"
	"ecopulse/internal/pipeline"
	"ecopulse/internal/runtime"
)

// ChannelBindings holds the channel identifiers resolved at startup, for the
// operator "channels" dump.
type ChannelBindings struct {
	Source         int64
	SourceSecond   int64
	Target         int64
	AnalysisSource int64
	AnalysisTarget int64
	DigestSource   int64
	DigestTarget   int64
	Control        int64
}

// Handler executes operator commands against the shared runtime state.
// Every command yields exactly one reply.
type Handler struct {
	state    *runtime.State
	pool     *credentials.Pool
	backlog  *pipeline.BacklogQueue
	buffer   *pipeline.AggregationBuffer
	dedupe   *pipeline.DedupCache
	digest   *pipeline.DigestScheduler
	channels ChannelBindings
	logger   *slog.Logger
}

// HandlerDeps wires the command handler's collaborators.
type HandlerDeps struct {
	State    *runtime.State
	Pool     *credentials.Pool
	Backlog  *pipeline.BacklogQueue
	Buffer   *pipeline.AggregationBuffer
	Dedupe   *pipeline.DedupCache
	Digest   *pipeline.DigestScheduler
	Channels ChannelBindings
	Logger   *slog.Logger
}

// NewHandler constructs the operator command handler.
func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		state:    deps.State,
		pool:     deps.Pool,
		backlog:  deps.Backlog,
		buffer:   deps.Buffer,
		dedupe:   deps.Dedupe,
		digest:   deps.Digest,
		channels: deps.Channels,
		logger:   logger,
	}
}

// Execute parses and runs one command, returning its single reply.
func (h *Handler) Execute(ctx context.Context, text string) string {
	cmd := Parse(text)

	switch cmd {
	case CmdEnable:
		h.state.SetActive(true)
		h.logger.Info("pipeline enabled by operator")
		return "✅ Pipeline enabled."
	case CmdDisable:
		h.state.SetActive(false)
		h.logger.Info("pipeline disabled by operator")
		return "⛔ Pipeline disabled."

	case CmdEconomicOn:
		return h.setLane(runtime.LaneEconomic, true)
	case CmdEconomicOff:
		return h.setLane(runtime.LaneEconomic, false)
	case CmdImmediateOn:
		return h.setLane(runtime.LaneImmediate, true)
	case CmdImmediateOff:
		return h.setLane(runtime.LaneImmediate, false)
	case CmdAnalysisOn:
		return h.setLane(runtime.LaneAnalysis, true)
	case CmdAnalysisOff:
		return h.setLane(runtime.LaneAnalysis, false)
	case CmdScheduledOn:
		return h.setLane(runtime.LaneScheduled, true)
	case CmdScheduledOff:
		return h.setLane(runtime.LaneScheduled, false)
	case CmdDigestOn:
		return h.setLane(runtime.LaneDigest, true)
	case CmdDigestOff:
		return h.setLane(runtime.LaneDigest, false)

	case CmdDigestNow:
		if !h.state.LaneEnabled(runtime.LaneDigest) {
			return "⚠️ Digest lane is disabled. Send `digest on` first."
		}
		if h.digest.Synthesize(ctx) {
			return "✅ Digest published."
		}
		return "📭 Digest buffer was empty — nothing published."

	case CmdStatus:
		return h.statusReply()
	case CmdKeys:
		return h.keysReply()
	case CmdQueues:
		return h.queuesReply()
	case CmdStats:
		return h.statsReply()
	case CmdChannels:
		return h.channelsReply()

	case CmdClearQueues:
		cleared := h.backlog.Clear() + h.buffer.Clear()
		return fmt.Sprintf("🧹 Cleared %d queued items.", cleared)
	case CmdResetDedup:
		cleared := h.dedupe.Clear()
		return fmt.Sprintf("♻️ Cleared %d dedup records.", cleared)

	case CmdDryRunOn:
		h.state.SetDryRun(true)
		return "🧪 Dry-run enabled (nothing will actually be published)."
	case CmdDryRunOff:
		h.state.SetDryRun(false)
		return "🚀 Dry-run disabled (live publishing active)."

	case CmdHelp:
		return helpReply
	default:
		return unknownReply
	}
}

func (h *Handler) setLane(lane runtime.Lane, on bool) string {
	h.state.SetLane(lane, on)
	mark := "✅ enabled"
	if !on {
		mark = "⛔ disabled"
	}
	h.logger.Info("lane toggled", "lane", lane, "enabled", on)
	name := string(lane)
	name = strings.ToUpper(name[:1]) + name[1:]
	return fmt.Sprintf("%s lane %s.", name, mark)
}

func (h *Handler) statusReply() string {
	flag := func(on bool) string {
		if on {
			return "✅"
		}
		return "⛔"
	}
	mode := "🚀"
	if h.state.DryRun() {
		mode = "🧪"
	}
	return fmt.Sprintf(
		"📊 **Pipeline status**\n"+
			"- active: %s\n"+
			"- economic: %s\n"+
			"- immediate: %s\n"+
			"- analysis: %s\n"+
			"- scheduled: %s\n"+
			"- digest: %s\n"+
			"- backlog queue: %d\n"+
			"- digest buffer: %d\n"+
			"- mode: %s",
		flag(h.state.Active()),
		flag(h.state.LaneEnabled(runtime.LaneEconomic)),
		flag(h.state.LaneEnabled(runtime.LaneImmediate)),
		flag(h.state.LaneEnabled(runtime.LaneAnalysis)),
		flag(h.state.LaneEnabled(runtime.LaneScheduled)),
		flag(h.state.LaneEnabled(runtime.LaneDigest)),
		h.backlog.Len(),
		h.buffer.Len(),
		mode,
	)
}

func (h *Handler) keysReply() string {
	status := h.pool.Status()

	masked := make([]string, 0, len(status.Usage))
	for key, count := range status.Usage {
		masked = append(masked, fmt.Sprintf("%s=%d", key, count))
	}
	sort.Strings(masked)

	return fmt.Sprintf(
		"🔑 Credentials: %d | healthy: %d | quarantined: %d\n📈 Usage: %s",
		status.Total, status.Healthy, status.Quarantined, strings.Join(masked, ", "))
}

func (h *Handler) queuesReply() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📥 **Backlog queue**: %d items\n", h.backlog.Len())
	fmt.Fprintf(&b, "🕗 **Digest buffer**: %d items\n", h.buffer.Len())

	if head := h.backlog.Snapshot(3); len(head) > 0 {
		b.WriteString("\n**Backlog head**:\n")
		for i, item := range head {
			fmt.Fprintf(&b, "%d. %s...\n", i+1, previewOf(item.Cleaned))
		}
	}
	if tail := h.buffer.Snapshot(3); len(tail) > 0 {
		b.WriteString("\n**Digest tail**:\n")
		for i, entry := range tail {
			fmt.Fprintf(&b, "%d. %s...\n", i+1, previewOf(entry))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) statsReply() string {
	stats := h.state.StatsSnapshot()
	return fmt.Sprintf(
		"📈 **Publication stats**\n"+
			"- total: %d\n"+
			"- economic: %d\n"+
			"- immediate: %d\n"+
			"- scheduled: %d\n"+
			"- analysis: %d\n"+
			"- digest: %d\n"+
			"- rate limits: %d",
		stats.Posts,
		stats.PerLane[domain.CategoryEconomic],
		stats.PerLane[domain.CategoryImmediate],
		stats.PerLane[domain.CategoryScheduled],
		stats.PerLane[domain.CategoryAnalysis],
		stats.PerLane[domain.CategoryDigest],
		stats.RateLimits,
	)
}

func (h *Handler) channelsReply() string {
	show := func(id int64) string {
		if id == 0 {
			return "not bound"
		}
		return fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf(
		"📡 **Channel bindings**\n"+
			"- source 1: `%s`\n"+
			"- source 2: `%s`\n"+
			"- target: `%s`\n"+
			"- analysis source: `%s`\n"+
			"- analysis target: `%s`\n"+
			"- digest source: `%s`\n"+
			"- digest target: `%s`\n"+
			"- control: `%s`",
		show(h.channels.Source),
		show(h.channels.SourceSecond),
		show(h.channels.Target),
		show(h.channels.AnalysisSource),
		show(h.channels.AnalysisTarget),
		show(h.channels.DigestSource),
		show(h.channels.DigestTarget),
		show(h.channels.Control),
	)
}

func previewOf(text string) string {
	runes := []rune(text)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	return string(runes)
}

const helpReply = "🛠️ **Commands**\n```\n" +
	"# master\n" +
	"enable / disable\n\n" +
	"# lanes\n" +
	"economic on/off\n" +
	"immediate on/off\n" +
	"analysis on/off\n" +
	"scheduled on/off\n" +
	"digest on/off\n" +
	"digest now\n\n" +
	"# monitoring\n" +
	"status\nkeys\nqueues\nstats\nchannels\n\n" +
	"# maintenance\n" +
	"clear queues\n" +
	"reset dedup\n" +
	"dry-run on/off\n" +
	"```\n" +
	"💡 Commands only work in the control channel."

const unknownReply = "🔍 **Unknown command**\n\n" +
	"🛠️ Basics:\n" +
	"• `enable` / `disable`\n" +
	"• `economic on` / `off`\n" +
	"• `immediate on` / `off`\n" +
	"• `scheduled on` / `off`\n" +
	"• `digest on` / `off`\n" +
	"• `digest now`\n\n" +
	"📌 Send **help** for the full list."
