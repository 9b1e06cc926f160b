package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ecopulse/internal/credentials"
	"ecopulse/internal/ports"
	"ecopulse/internal/textproc"
)

// maxPayloadRunes caps every formatted output.
const maxPayloadRunes = 4000

const neutralImpact = "⚪ Neutral impact"

// Task instructions for the transformation service. The service is a black
// box; these only select the shape of the rewrite.
const (
	instructionStructured = "You are a professional economic news editor. " +
		"Extract the released figures and present them in Arabic using this template:\n" +
		"🔴 Just released:\n\n💠 {country}\n🔵 {indicator}\n\n" +
		"🕒 Previous:\n🕒 Forecast:\n🕓 Actual:\n\n" +
		"👈 Verdict: an assessment of at most 9 words."

	instructionMacro = "You are a macro economic analyst. " +
		"Analyze the item and reply in Arabic with at most 10 words."

	instructionImpact = "You are an economic analyst and professional translator. " +
		"Analyze the item, then restate it in Arabic in a concise economic register. " +
		"First give a two-to-four word impact assessment, then ### , then the Arabic restatement."

	instructionDigest = "You are a professional economic editor. " +
		"Summarize the following items into one comprehensive hourly economic brief in Arabic. " +
		"Focus on the main impacts, indicators, and official statements. " +
		"Keep it engaging and under 120 words. " +
		"Start with a catchy title such as: '📊 Hourly Economic Brief'."
)

// FormatterOptions tunes retries and the fixed payload decorations.
type FormatterOptions struct {
	Signature         string
	AnalysisSignature string
	DigestSignature   string
	Watermark         string
	MaxAttempts       int
	RetryDelay        time.Duration
}

// Formatter turns a cleaned item into its final publishable payload via the
// transformation collaborator, picking the template by classification.
// Collaborator failures degrade to a truncated-excerpt fallback; an item the
// normalizer rejects formats to the empty string and is dropped by the
// caller.
type Formatter struct {
	transformer ports.Transformer
	pool        *credentials.Pool
	opts        FormatterOptions
	logger      *slog.Logger
}

// NewFormatter wires the transformer, the credential pool, and decorations.
func NewFormatter(transformer ports.Transformer, pool *credentials.Pool, opts FormatterOptions, logger *slog.Logger) *Formatter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 6
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{transformer: transformer, pool: pool, opts: opts, logger: logger}
}

// Format produces the final payload for one item. The emoji marks the lane;
// attention prepends the alert header on the plain-content path.
func (f *Formatter) Format(ctx context.Context, text, emoji string, attention bool) string {
	cleaned := textproc.Clean(text)
	if !textproc.IsMeaningful(cleaned) {
		f.logger.Debug("ignoring meaningless text in formatting")
		return ""
	}

	switch {
	case textproc.IsStructuredMetric(cleaned):
		f.logger.Info("structured economic data detected")
		rewritten, err := f.transform(ctx, instructionStructured, cleaned)
		if err != nil {
			return f.compose(fmt.Sprintf("🔴 **Economic data**\n\n```%s...```", excerpt(cleaned, 200)), f.opts.Signature)
		}
		return f.compose(rewritten, f.opts.Signature)

	case textproc.IsMacroCommentary(cleaned):
		rewritten, err := f.transform(ctx, instructionMacro, cleaned)
		if err != nil {
			return f.compose(fmt.Sprintf("💡 **Economic analysis**\n\n```%s...```", excerpt(cleaned, 150)), f.opts.Signature)
		}
		return f.compose(rewritten, f.opts.Signature)

	default:
		impact, translation := f.AnalyzeAndTranslate(ctx, cleaned)
		var header string
		if attention {
			header = "⚠️🚨 **Attention:**\n\n"
		}
		body := fmt.Sprintf("%s%s\n\n%s %s", header, impact, emoji, translation)
		return f.compose(body, f.opts.Signature)
	}
}

// Analysis formats an item for the analysis lane.
func (f *Formatter) Analysis(ctx context.Context, text string) string {
	cleaned := textproc.Clean(text)
	if !textproc.IsMeaningful(cleaned) {
		return ""
	}

	_, translation := f.AnalyzeAndTranslate(ctx, cleaned)
	body := fmt.Sprintf("⚠️🚨 %s", translation)
	return f.compose(body, f.opts.AnalysisSignature)
}

// Digest synthesizes the hourly brief from the newline-joined buffer. On
// collaborator failure it emits a fallback holding a truncated excerpt of
// the raw concatenation rather than failing silently.
func (f *Formatter) Digest(ctx context.Context, combined string) string {
	summary, err := f.transform(ctx, instructionDigest, combined)
	if err != nil {
		summary = fmt.Sprintf("📊 **Hourly Economic Brief**\n\nGeneration failed. Source items:\n```%s...```", excerpt(combined, 300))
	}
	return f.compose(summary, f.opts.DigestSignature)
}

// AnalyzeAndTranslate runs the impact-plus-restatement template. It never
// fails: after retries are exhausted it falls back to a neutral impact and
// the untranslated text.
func (f *Formatter) AnalyzeAndTranslate(ctx context.Context, text string) (impact, translation string) {
	if text == "" {
		return neutralImpact, ""
	}

	content, err := f.transform(ctx, instructionImpact, text)
	if err != nil {
		f.logger.Error("analysis failed after all attempts", "error", err)
		return neutralImpact, text
	}

	before, after, found := strings.Cut(content, "###")
	impact = strings.TrimSpace(before)
	if impact == "" {
		impact = neutralImpact
	}
	if !found {
		return impact, text
	}
	return impact, strings.TrimSpace(after)
}

// transform calls the collaborator with bounded retries and a fixed delay,
// acquiring a fresh credential per attempt and reporting the one that failed.
func (f *Formatter) transform(ctx context.Context, instruction, text string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxAttempts; attempt++ {
		credential := f.pool.Acquire()
		result, err := f.transformer.Transform(ctx, instruction, text, credential)
		if err == nil {
			return strings.TrimSpace(result), nil
		}

		lastErr = err
		f.logger.Warn("transformation attempt failed",
			"attempt", attempt, "key", credentials.Mask(credential), "error", err)
		f.pool.ReportFailure(credential, err.Error())

		if attempt < f.opts.MaxAttempts && !sleepCtx(ctx, f.opts.RetryDelay) {
			break
		}
	}
	return "", lastErr
}

func (f *Formatter) compose(body, signature string) string {
	final := fmt.Sprintf("%s\n\n%s\n\n%s", body, signature, f.opts.Watermark)
	return truncate(final, maxPayloadRunes)
}

func excerpt(text string, n int) string {
	return truncate(text, n)
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
