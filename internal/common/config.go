package common

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration, decoded from jobops.toml.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	LLM         LLMConfig       `toml:"llm"`
	JDFetch     JDFetchConfig   `toml:"jd_fetch"`
	Scoring     ScoringConfig   `toml:"scoring"`
	Ingest      IngestConfig    `toml:"ingest"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Pollers     PollersConfig   `toml:"pollers"`
	Webhooks    WebhooksConfig  `toml:"webhooks"`
	Pack        PackConfig      `toml:"pack"`
	RRExport    RRExportConfig  `toml:"rr_export"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `toml:"sqlite"`
	Badger BadgerConfig `toml:"badger"`
}

// SQLiteConfig configures the relational system of record (C9 Storage Gateway).
type SQLiteConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
	Environment    string `toml:"-"` // populated from Config.Environment at load time
	WALMode        bool   `toml:"wal_mode"`
	BusyTimeoutMS  int    `toml:"busy_timeout_ms"`
	CacheSizeMB    int    `toml:"cache_size_mb"`
}

// BadgerConfig configures the embedded dedup-cache store used by the ingestion
// orchestrator (inbound-media message_id dedup) and the scheduler's poll cursors.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
}

// LLMConfig selects and configures the extract_jd/score backend (C3/C4).
type LLMConfig struct {
	Provider       string        `toml:"provider"` // "claude" or "gemini"
	Model          string        `toml:"model"`
	Temperature    float64       `toml:"temperature"`
	MaxOutputTokens int          `toml:"max_output_tokens"` // clamped to [128,700] per spec §4.3
	TimeoutSeconds int           `toml:"timeout_seconds"`
	APIKey         string        `toml:"api_key"`
}

func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// JDFetchConfig configures the JD Resolver's HTTP fetch policy (C2).
type JDFetchConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"` // bounded [1.5,15]s by FetchTimeout()
	UserAgent      string `toml:"user_agent"`
}

func (c JDFetchConfig) FetchTimeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs == 0 {
		secs = 7
	}
	d := time.Duration(float64(secs) * float64(time.Second))
	if d < 1500*time.Millisecond {
		d = 1500 * time.Millisecond
	}
	if d > 15*time.Second {
		d = 15 * time.Second
	}
	return d
}

// ScoringConfig configures the scoring pipeline's status thresholds (C4).
type ScoringConfig struct {
	ShortlistThreshold int `toml:"shortlist_threshold"` // default 75
	ArchiveThreshold   int `toml:"archive_threshold"`   // default 55
	MinJDChars         int `toml:"min_jd_chars"`        // default 120
	MinTargetSignal    int `toml:"min_target_signal"`   // default 8
}

func (c ScoringConfig) withDefaults() ScoringConfig {
	if c.ShortlistThreshold == 0 {
		c.ShortlistThreshold = 75
	}
	if c.ArchiveThreshold == 0 {
		c.ArchiveThreshold = 55
	}
	if c.MinJDChars == 0 {
		c.MinJDChars = 120
	}
	if c.MinTargetSignal == 0 {
		c.MinTargetSignal = 8
	}
	return c
}

// IngestConfig configures the ingestion orchestrator's bounded worker pool
// (C6) and the per-source-domain fetch rate the JD Resolver (C2) is handed.
type IngestConfig struct {
	RecoverConcurrency int     `toml:"recover_concurrency"`  // bounded [1,6], default 3
	FetchRatePerSec    float64 `toml:"fetch_rate_per_sec"`   // per-domain token refill rate, default 2.0
	FetchBurst         int     `toml:"fetch_burst"`          // per-domain token bucket size, default 4
}

func (c IngestConfig) Concurrency() int {
	n := c.RecoverConcurrency
	if n <= 0 {
		n = 3
	}
	if n > 6 {
		n = 6
	}
	return n
}

// FetchRate returns the per-domain rate limiter parameters with their
// defaults applied.
func (c IngestConfig) FetchRate() (rps float64, burst int) {
	rps = c.FetchRatePerSec
	if rps <= 0 {
		rps = 2.0
	}
	burst = c.FetchBurst
	if burst <= 0 {
		burst = 4
	}
	return rps, burst
}

// SchedulerConfig configures the cron loop's wall-clock budget (C8).
type SchedulerConfig struct {
	CronExpr string `toml:"cron_expr"`
	MaxMS    int    `toml:"max_ms"` // bounded [5000,840000], default 45000
}

func (c SchedulerConfig) Budget() time.Duration {
	ms := c.MaxMS
	if ms == 0 {
		ms = 45000
	}
	if ms < 5000 {
		ms = 5000
	}
	if ms > 840000 {
		ms = 840000
	}
	return time.Duration(ms) * time.Millisecond
}

// PollersConfig configures the default poller adapters (C12, external collaborators).
type PollersConfig struct {
	IMAP IMAPPollerConfig `toml:"imap"`
	RSS  RSSPollerConfig  `toml:"rss"`
}

type IMAPPollerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	UseTLS   bool   `toml:"use_tls"`
	Mailbox  string `toml:"mailbox"`

	// OAuth2*  configure XOAUTH2 authentication (Gmail and other providers
	// that no longer accept plain password login). When RefreshToken is
	// set, the poller exchanges it for a short-lived access token on every
	// connect instead of sending Password.
	OAuth2ClientID     string `toml:"oauth2_client_id"`
	OAuth2ClientSecret string `toml:"oauth2_client_secret"`
	OAuth2RefreshToken string `toml:"oauth2_refresh_token"`
	OAuth2TokenURL     string `toml:"oauth2_token_url"`
}

// UsesOAuth2 reports whether the poller should authenticate via XOAUTH2
// instead of a plain password login.
func (c IMAPPollerConfig) UsesOAuth2() bool {
	return c.OAuth2RefreshToken != ""
}

type RSSPollerConfig struct {
	Enabled  bool     `toml:"enabled"`
	FeedURLs []string `toml:"feed_urls"`
}

// WebhooksConfig configures inbound webhook authentication (§6 whatsapp/vonage).
type WebhooksConfig struct {
	VonageJWTSecret  string   `toml:"vonage_jwt_secret"`
	VonageAllowFrom  []string `toml:"vonage_allow_from"`
}

// PackConfig configures the Application Pack Manager's one-page gate defaults (C7).
type PackConfig struct {
	OnePageMode  string `toml:"one_page_mode"` // "soft" or "hard"
	MinSummaryChars int `toml:"min_summary_chars"`
	MinBullets      int `toml:"min_bullets"`
	MinATSScore     int `toml:"min_ats_score"`
	MinMustCoveragePct int `toml:"min_must_coverage_pct"`
}

// RRExportConfig configures the outbound push to the external résumé-tailoring
// system identified by rr_export_json's renderer field (C13).
type RRExportConfig struct {
	Enabled  bool   `toml:"enabled"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
	TimeoutS int    `toml:"timeout_seconds"`
}

// LoadConfig reads and decodes a TOML configuration file, applying defaults for
// unset scoring/ingest/scheduler bounds.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "./data/jobops.db"
	}
	c.Storage.SQLite.Environment = c.Environment
	if c.Storage.SQLite.BusyTimeoutMS == 0 {
		c.Storage.SQLite.BusyTimeoutMS = 5000
	}
	if c.Storage.SQLite.CacheSizeMB == 0 {
		c.Storage.SQLite.CacheSizeMB = 16
	}
	if c.Storage.Badger.Path == "" {
		c.Storage.Badger.Path = "./data/badger"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if len(c.Logging.Output) == 0 {
		c.Logging.Output = []string{"stdout"}
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "claude"
	}
	if c.LLM.MaxOutputTokens == 0 {
		c.LLM.MaxOutputTokens = 500
	}
	if c.LLM.MaxOutputTokens < 128 {
		c.LLM.MaxOutputTokens = 128
	}
	if c.LLM.MaxOutputTokens > 700 {
		c.LLM.MaxOutputTokens = 700
	}
	c.Scoring = c.Scoring.withDefaults()
	if c.Pack.OnePageMode == "" {
		c.Pack.OnePageMode = "soft"
	}
	if c.Pack.MinSummaryChars == 0 {
		c.Pack.MinSummaryChars = 180
	}
	if c.Pack.MinBullets == 0 {
		c.Pack.MinBullets = 3
	}
	if c.Pack.MinATSScore == 0 {
		c.Pack.MinATSScore = 60
	}
	if c.Pack.MinMustCoveragePct == 0 {
		c.Pack.MinMustCoveragePct = 50
	}
	if c.RRExport.TimeoutS == 0 {
		c.RRExport.TimeoutS = 15
	}
}

// ResolveAPIKey resolves an API key with a KV-store-first / config-fallback order,
// matching the teacher's `common.ResolveAPIKey` convention. kv may be nil.
func ResolveAPIKey(kv interface{ Get(key string) (string, bool) }, kvKey, configFallback string) string {
	if kv != nil {
		if v, ok := kv.Get(kvKey); ok && v != "" {
			return v
		}
	}
	return configFallback
}
