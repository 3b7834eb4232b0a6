// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	DB        DBConfig        `mapstructure:"db"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Retention RetentionConfig `mapstructure:"retention"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlConfig governs worker pool size and per-run fetch bounds.
type CrawlConfig struct {
	Workers          int `mapstructure:"workers"`
	MinPerTag        int `mapstructure:"min_per_tag"`
	MaxPerTag        int `mapstructure:"max_per_tag"`
	MaxQueriesPerTag int `mapstructure:"max_queries_per_tag"`
	KeywordCap       int `mapstructure:"keyword_cap"`
	PostKeywordCap   int `mapstructure:"post_keyword_cap"`
	PostQueryLimit   int `mapstructure:"post_query_limit"`
	PaperWindowDays  int `mapstructure:"paper_window_days"`
	PostWindowDays   int `mapstructure:"post_window_days"`
}

// HTTPConfig configures the outbound HTTP clients.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SourcesConfig holds per-source credentials and universes. Empty
// credentials disable the source that needs them.
type SourcesConfig struct {
	GitHubToken   string   `mapstructure:"github_token"`
	YouTubeAPIKey string   `mapstructure:"youtube_api_key"`
	RSSHubBaseURL string   `mapstructure:"rsshub_base_url"`
	Subreddits    []string `mapstructure:"subreddits"`
}

// RetentionConfig sets the age-out windows in days.
type RetentionConfig struct {
	PaperDays     int `mapstructure:"paper_days"`
	CodeDays      int `mapstructure:"code_days"`
	CommunityDays int `mapstructure:"community_days"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("crawl.workers", 4)
	v.SetDefault("crawl.min_per_tag", 5)
	v.SetDefault("crawl.max_per_tag", 60)
	v.SetDefault("crawl.max_queries_per_tag", 40)
	v.SetDefault("crawl.keyword_cap", 60)
	v.SetDefault("crawl.post_keyword_cap", 12)
	v.SetDefault("crawl.post_query_limit", 30)
	v.SetDefault("crawl.paper_window_days", 7)
	v.SetDefault("crawl.post_window_days", 3)
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("retention.paper_days", 365)
	v.SetDefault("retention.code_days", 365)
	v.SetDefault("retention.community_days", 90)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("crawl.workers must be > 0")
	}
	if c.Crawl.MinPerTag > c.Crawl.MaxPerTag {
		return fmt.Errorf("crawl.min_per_tag must not exceed crawl.max_per_tag")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Retention.PaperDays <= 0 || c.Retention.CodeDays <= 0 || c.Retention.CommunityDays <= 0 {
		return fmt.Errorf("retention windows must be > 0")
	}
	return nil
}

// HTTPTimeout converts the timeout config into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
