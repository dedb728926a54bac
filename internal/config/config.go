package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "SIP_WATCHER_CONFIG"
	webhookURLEnv  = "DISCORD_WEBHOOK_URL"
	databaseDSNEnv = "DATABASE_DSN"
	statePathEnv   = "SIP_WATCHER_STATE"
)

// Config holds high-level settings required across the application.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	State     StateConfig     `yaml:"state"`
	Database  DatabaseConfig  `yaml:"database"`
	Discord   DiscordConfig   `yaml:"discord"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig describes the watched site and its listing pages.
type SiteConfig struct {
	BaseURL string         `yaml:"baseUrl"`
	Sources []SourceConfig `yaml:"sources"`
}

// SourceConfig is one listing page to scan for article links.
type SourceConfig struct {
	URL     string `yaml:"url"`
	Label   string `yaml:"label"`
	Scanner string `yaml:"scanner"` // strategy name; defaults to "list"
}

// StateConfig locates the persisted seen-URL document.
type StateConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig describes the optional delivery-archive Postgres connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// DiscordConfig wires the webhook sink and the bot display persona.
type DiscordConfig struct {
	WebhookURL string `yaml:"webhookUrl"`
	Username   string `yaml:"username"`
	AvatarURL  string `yaml:"avatarUrl"`
	AuthorName string `yaml:"authorName"`
	AuthorURL  string `yaml:"authorUrl"`
	FooterText string `yaml:"footerText"`
}

// PipelineConfig holds delivery policy knobs.
type PipelineConfig struct {
	Cutoff          time.Time `yaml:"cutoff"`
	MaxInitialPosts int       `yaml:"maxInitialPosts"`
	SendDelayMs     int       `yaml:"sendDelayMs"`
	ConcurrentPages int       `yaml:"concurrentPages"`
}

// SendDelay is the enforced minimum pause between webhook posts.
func (p PipelineConfig) SendDelay() time.Duration {
	return time.Duration(p.SendDelayMs) * time.Millisecond
}

// FetchConfig tunes the shared HTTP fetcher.
type FetchConfig struct {
	MinIntervalMs int    `yaml:"minIntervalMs"`
	TimeoutSec    int    `yaml:"timeoutSec"`
	MaxRetries    int    `yaml:"maxRetries"`
	UserAgent     string `yaml:"userAgent"`
}

// MinInterval is the enforced minimum pause between page fetches.
func (f FetchConfig) MinInterval() time.Duration {
	return time.Duration(f.MinIntervalMs) * time.Millisecond
}

// Timeout is the per-request deadline.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// SchedulerConfig defines how often the watcher runs; zero interval means
// a single run (cron-hosted deployments).
type SchedulerConfig struct {
	IntervalMin int `yaml:"intervalMin"`
}

// Interval resolves the run cadence.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMin) * time.Minute
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
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

	if len(cfg.Site.Sources) == 0 {
		cfg.Site.Sources = defaultConfig().Site.Sources
	}
	for i := range cfg.Site.Sources {
		if cfg.Site.Sources[i].Scanner == "" {
			cfg.Site.Sources[i].Scanner = "list"
		}
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(webhookURLEnv); v != "" {
		c.Discord.WebhookURL = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(statePathEnv); v != "" {
		c.State.Path = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Site.BaseURL != "" {
		base.Site.BaseURL = override.Site.BaseURL
	}
	if len(override.Site.Sources) > 0 {
		base.Site.Sources = override.Site.Sources
	}

	if override.State.Path != "" {
		base.State.Path = override.State.Path
	}

	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Discord.WebhookURL != "" {
		base.Discord.WebhookURL = override.Discord.WebhookURL
	}
	if override.Discord.Username != "" {
		base.Discord.Username = override.Discord.Username
	}
	if override.Discord.AvatarURL != "" {
		base.Discord.AvatarURL = override.Discord.AvatarURL
	}
	if override.Discord.AuthorName != "" {
		base.Discord.AuthorName = override.Discord.AuthorName
	}
	if override.Discord.AuthorURL != "" {
		base.Discord.AuthorURL = override.Discord.AuthorURL
	}
	if override.Discord.FooterText != "" {
		base.Discord.FooterText = override.Discord.FooterText
	}

	if !override.Pipeline.Cutoff.IsZero() {
		base.Pipeline.Cutoff = override.Pipeline.Cutoff
	}
	if override.Pipeline.MaxInitialPosts > 0 {
		base.Pipeline.MaxInitialPosts = override.Pipeline.MaxInitialPosts
	}
	if override.Pipeline.SendDelayMs > 0 {
		base.Pipeline.SendDelayMs = override.Pipeline.SendDelayMs
	}
	if override.Pipeline.ConcurrentPages > 0 {
		base.Pipeline.ConcurrentPages = override.Pipeline.ConcurrentPages
	}

	if override.Fetch.MinIntervalMs > 0 {
		base.Fetch.MinIntervalMs = override.Fetch.MinIntervalMs
	}
	if override.Fetch.TimeoutSec > 0 {
		base.Fetch.TimeoutSec = override.Fetch.TimeoutSec
	}
	if override.Fetch.MaxRetries > 0 {
		base.Fetch.MaxRetries = override.Fetch.MaxRetries
	}
	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}

	if override.Scheduler.IntervalMin > 0 {
		base.Scheduler.IntervalMin = override.Scheduler.IntervalMin
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Site: SiteConfig{
			BaseURL: "https://sip.elfak.ni.ac.rs",
			Sources: []SourceConfig{
				{URL: "https://sip.elfak.ni.ac.rs/", Label: "Насловна", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/nastava", Label: "Настава", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/kalendar", Label: "Календар", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/polaganje-ispita", Label: "Полагање испита", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/kolokvijumi", Label: "Колоквијуми", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/upis-naredne-godine-oas", Label: "Упис наредне године (ОАС)", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/mas", Label: "МАС", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/das", Label: "ДАС", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/obrasci", Label: "Обрасци", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/literatura", Label: "Литература", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/rezultati", Label: "Резултати", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/konkursi", Label: "Конкурси", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/ostalo", Label: "Остало", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/pomoc", Label: "Помоћ", Scanner: "list"},
				{URL: "https://sip.elfak.ni.ac.rs/category/kursevi", Label: "Курсеви", Scanner: "list"},
			},
		},
		State:    StateConfig{Path: "state.json"},
		Database: DatabaseConfig{DSN: ""},
		Discord: DiscordConfig{
			Username:   "Elfak SIP",
			AuthorName: "SIP Elfak",
			AuthorURL:  "https://sip.elfak.ni.ac.rs",
			FooterText: "SIP Elfak Bot",
		},
		Pipeline: PipelineConfig{
			Cutoff:          time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
			MaxInitialPosts: 3,
			SendDelayMs:     2000,
			ConcurrentPages: 4,
		},
		Fetch: FetchConfig{
			MinIntervalMs: 500,
			TimeoutSec:    15,
			MaxRetries:    3,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		},
		Scheduler: SchedulerConfig{IntervalMin: 0},
		Logging:   LoggingConfig{Level: "info"},
	}
}
