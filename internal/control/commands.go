package control

import (
	"regexp"
	"strings"
)

// Command is the closed enumeration of operator commands. Input is matched
// exactly after normalization; there is no substring matching, so no command
// can shadow another.
type Command int

const (
	CmdUnknown Command = iota
	CmdEnable
	CmdDisable
	CmdEconomicOn
	CmdEconomicOff
	CmdImmediateOn
	CmdImmediateOff
	CmdAnalysisOn
	CmdAnalysisOff
	CmdScheduledOn
	CmdScheduledOff
	CmdDigestOn
	CmdDigestOff
	CmdDigestNow
	CmdStatus
	CmdKeys
	CmdQueues
	CmdStats
	CmdChannels
	CmdClearQueues
	CmdResetDedup
	CmdDryRunOn
	CmdDryRunOff
	CmdHelp
)

var commandTable = map[string]Command{
	"enable":        CmdEnable,
	"disable":       CmdDisable,
	"economic on":   CmdEconomicOn,
	"economic off":  CmdEconomicOff,
	"immediate on":  CmdImmediateOn,
	"immediate off": CmdImmediateOff,
	"analysis on":   CmdAnalysisOn,
	"analysis off":  CmdAnalysisOff,
	"scheduled on":  CmdScheduledOn,
	"scheduled off": CmdScheduledOff,
	"digest on":     CmdDigestOn,
	"digest off":    CmdDigestOff,
	"digest now":    CmdDigestNow,
	"status":        CmdStatus,
	"keys":          CmdKeys,
	"queues":        CmdQueues,
	"stats":         CmdStats,
	"channels":      CmdChannels,
	"clear queues":  CmdClearQueues,
	"reset dedup":   CmdResetDedup,
	"dry-run on":    CmdDryRunOn,
	"dry-run off":   CmdDryRunOff,
	"help":          CmdHelp,
}

var innerSpaces = regexp.MustCompile(`\s+`)

// Parse normalizes the raw operator input and resolves it against the
// dispatch table. Empty input asks for help; anything unrecognized maps to
// CmdUnknown.
func Parse(text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))
	normalized = innerSpaces.ReplaceAllString(normalized, " ")
	if normalized == "" {
		return CmdHelp
	}
	if cmd, ok := commandTable[normalized]; ok {
		return cmd
	}
	return CmdUnknown
}
