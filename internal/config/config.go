package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	openAIKeysEnv     = "OPENAI_API_KEYS"
	openAIModelEnv    = "OPENAI_MODEL"
	sourceChannelEnv  = "SOURCE_CHANNEL"
	targetChannelEnv  = "TARGET_CHANNEL"
	controlChannelEnv = "CONTROL_CHANNEL"
	dryRunEnv         = "DRY_RUN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	OpenAI      OpenAIConfig      `yaml:"openai"`
	Publication PublicationConfig `yaml:"publication"`
	Digest      DigestConfig      `yaml:"digest"`
	DryRun      bool              `yaml:"dryRun"`
	StartActive bool              `yaml:"startActive"`
}

// LoggingConfig controls log level and the optional activity log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// TelegramConfig wires transport credentials and channel bindings.
type TelegramConfig struct {
	BotToken   string         `yaml:"botToken"`
	APIBaseURL string         `yaml:"apiBaseUrl"`
	Channels   ChannelsConfig `yaml:"channels"`
}

// ChannelsConfig names every channel the pipeline binds to. References may be
// @usernames or numeric identifiers; resolution happens at startup and a
// failure there is fatal.
type ChannelsConfig struct {
	Source         string `yaml:"source"`
	SourceSecond   string `yaml:"sourceSecond"`
	Target         string `yaml:"target"`
	AnalysisSource string `yaml:"analysisSource"`
	AnalysisTarget string `yaml:"analysisTarget"`
	DigestSource   string `yaml:"digestSource"`
	DigestTarget   string `yaml:"digestTarget"`
	Control        string `yaml:"control"`
}

// OpenAIConfig defines how to contact the transformation service.
type OpenAIConfig struct {
	Endpoint           string   `yaml:"endpoint"`
	Model              string   `yaml:"model"`
	APIKeys            []string `yaml:"apiKeys"`
	MaxAttempts        int      `yaml:"maxAttempts"`
	RetryDelaySec      int      `yaml:"retryDelaySec"`
	KeyCooldownSec     int      `yaml:"keyCooldownSec"`
	RequestTimeoutSec  int      `yaml:"requestTimeoutSec"`
}

// RetryDelay returns the fixed delay between transformation attempts.
func (c OpenAIConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec) * time.Second
}

// KeyCooldown returns how long a failing credential stays quarantined.
func (c OpenAIConfig) KeyCooldown() time.Duration {
	return time.Duration(c.KeyCooldownSec) * time.Second
}

// RequestTimeout bounds a single transformation HTTP call.
func (c OpenAIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// PublicationConfig tunes the gates and pacing of both publication lanes.
type PublicationConfig struct {
	ImmediateMinViews   int    `yaml:"immediateMinViews"`
	ImmediateTimeoutSec int    `yaml:"immediateTimeoutSec"`
	ScheduledMinViews   int    `yaml:"scheduledMinViews"`
	PollIntervalSec     int    `yaml:"pollIntervalSec"`
	DrainCooldownSec    int    `yaml:"drainCooldownSec"`
	// MaxEngagementWaitSec caps the engagement backpressure poll. Zero keeps
	// the wait unbounded.
	MaxEngagementWaitSec int    `yaml:"maxEngagementWaitSec"`
	AnalysisIntervalSec  int    `yaml:"analysisIntervalSec"`
	DedupLimit           int    `yaml:"dedupLimit"`
	Signature            string `yaml:"signature"`
	AnalysisSignature    string `yaml:"analysisSignature"`
	Watermark            string `yaml:"watermark"`
}

// ImmediateTimeout returns the elapsed-time escape hatch of the urgent gate.
func (c PublicationConfig) ImmediateTimeout() time.Duration {
	return time.Duration(c.ImmediateTimeoutSec) * time.Second
}

// PollInterval returns the scheduled-lane engagement poll interval.
func (c PublicationConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// DrainCooldown returns the fixed pause between scheduled-lane iterations.
func (c PublicationConfig) DrainCooldown() time.Duration {
	return time.Duration(c.DrainCooldownSec) * time.Second
}

// MaxEngagementWait returns the backpressure safety ceiling (0 = unbounded).
func (c PublicationConfig) MaxEngagementWait() time.Duration {
	return time.Duration(c.MaxEngagementWaitSec) * time.Second
}

// AnalysisInterval returns the minimum gap between analysis-lane posts.
func (c PublicationConfig) AnalysisInterval() time.Duration {
	return time.Duration(c.AnalysisIntervalSec) * time.Second
}

// DigestConfig tunes the hourly digest lane.
type DigestConfig struct {
	Signature string `yaml:"signature"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. A missing or broken file falls back to defaults; this mirrors
// the fail-open posture of the rest of the pipeline.
func Load(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(openAIKeysEnv); v != "" {
		keys := make([]string, 0)
		for _, key := range strings.Split(v, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
		if len(keys) > 0 {
			c.OpenAI.APIKeys = keys
		}
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(sourceChannelEnv); v != "" {
		c.Telegram.Channels.Source = v
	}

	if v := os.Getenv(targetChannelEnv); v != "" {
		c.Telegram.Channels.Target = v
	}

	if v := os.Getenv(controlChannelEnv); v != "" {
		c.Telegram.Channels.Control = v
	}

	if v := os.Getenv(dryRunEnv); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			c.DryRun = true
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.APIBaseURL != "" {
		base.Telegram.APIBaseURL = override.Telegram.APIBaseURL
	}
	base.Telegram.Channels = mergeChannels(base.Telegram.Channels, override.Telegram.Channels)

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if len(override.OpenAI.APIKeys) > 0 {
		base.OpenAI.APIKeys = override.OpenAI.APIKeys
	}
	if override.OpenAI.MaxAttempts > 0 {
		base.OpenAI.MaxAttempts = override.OpenAI.MaxAttempts
	}
	if override.OpenAI.RetryDelaySec > 0 {
		base.OpenAI.RetryDelaySec = override.OpenAI.RetryDelaySec
	}
	if override.OpenAI.KeyCooldownSec > 0 {
		base.OpenAI.KeyCooldownSec = override.OpenAI.KeyCooldownSec
	}
	if override.OpenAI.RequestTimeoutSec > 0 {
		base.OpenAI.RequestTimeoutSec = override.OpenAI.RequestTimeoutSec
	}

	if override.Publication.ImmediateMinViews > 0 {
		base.Publication.ImmediateMinViews = override.Publication.ImmediateMinViews
	}
	if override.Publication.ImmediateTimeoutSec > 0 {
		base.Publication.ImmediateTimeoutSec = override.Publication.ImmediateTimeoutSec
	}
	if override.Publication.ScheduledMinViews > 0 {
		base.Publication.ScheduledMinViews = override.Publication.ScheduledMinViews
	}
	if override.Publication.PollIntervalSec > 0 {
		base.Publication.PollIntervalSec = override.Publication.PollIntervalSec
	}
	if override.Publication.DrainCooldownSec > 0 {
		base.Publication.DrainCooldownSec = override.Publication.DrainCooldownSec
	}
	if override.Publication.MaxEngagementWaitSec > 0 {
		base.Publication.MaxEngagementWaitSec = override.Publication.MaxEngagementWaitSec
	}
	if override.Publication.AnalysisIntervalSec > 0 {
		base.Publication.AnalysisIntervalSec = override.Publication.AnalysisIntervalSec
	}
	if override.Publication.DedupLimit > 0 {
		base.Publication.DedupLimit = override.Publication.DedupLimit
	}
	if override.Publication.Signature != "" {
		base.Publication.Signature = override.Publication.Signature
	}
	if override.Publication.AnalysisSignature != "" {
		base.Publication.AnalysisSignature = override.Publication.AnalysisSignature
	}
	if override.Publication.Watermark != "" {
		base.Publication.Watermark = override.Publication.Watermark
	}

	if override.Digest.Signature != "" {
		base.Digest.Signature = override.Digest.Signature
	}

	if override.DryRun {
		base.DryRun = true
	}
	if override.StartActive {
		base.StartActive = true
	}

	return base
}

func mergeChannels(base, override ChannelsConfig) ChannelsConfig {
	if override.Source != "" {
		base.Source = override.Source
	}
	if override.SourceSecond != "" {
		base.SourceSecond = override.SourceSecond
	}
	if override.Target != "" {
		base.Target = override.Target
	}
	if override.AnalysisSource != "" {
		base.AnalysisSource = override.AnalysisSource
	}
	if override.AnalysisTarget != "" {
		base.AnalysisTarget = override.AnalysisTarget
	}
	if override.DigestSource != "" {
		base.DigestSource = override.DigestSource
	}
	if override.DigestTarget != "" {
		base.DigestTarget = override.DigestTarget
	}
	if override.Control != "" {
		base.Control = override.Control
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", File: "ecopulse_activity.log"},
		Telegram: TelegramConfig{
			APIBaseURL: "https://api.telegram.org",
			Channels:   ChannelsConfig{Source: "me", SourceSecond: "me", Target: "me", Control: "me"},
		},
		OpenAI: OpenAIConfig{
			Endpoint:          "https://api.openai.com/v1/chat/completions",
			Model:             "gpt-4o-mini",
			MaxAttempts:       6,
			RetryDelaySec:     5,
			KeyCooldownSec:    3600,
			RequestTimeoutSec: 20,
		},
		Publication: PublicationConfig{
			ImmediateMinViews:   600,
			ImmediateTimeoutSec: 480,
			ScheduledMinViews:   800,
			PollIntervalSec:     60,
			DrainCooldownSec:    10,
			AnalysisIntervalSec: 900,
			DedupLimit:          100,
			Signature:           "— EcoPulse",
			AnalysisSignature:   "— Analysis",
			Watermark:           " ",
		},
		Digest: DigestConfig{Signature: "— Hourly Brief"},
	}
}
