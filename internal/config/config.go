package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration parameters
type Config struct {
	StartURL         string         `mapstructure:"start_url"`
	UserAgent        string         `mapstructure:"user_agent"`
	RequestTimeoutMs int            `mapstructure:"request_timeout_ms"`
	PageDelayMs      int            `mapstructure:"page_delay_ms"`
	MaxPages         int            `mapstructure:"max_pages"`
	Selectors        SelectorConfig `mapstructure:"selectors"`
	Issues           IssueConfig    `mapstructure:"issues"`
	Analysis         AnalysisConfig `mapstructure:"analysis"`
	Output           OutputConfig   `mapstructure:"output"`
	MetricsPath      string         `mapstructure:"metrics_path"`
	MetricsAddr      string         `mapstructure:"metrics_addr"`
}

// SelectorConfig locates thread elements in a forum page
type SelectorConfig struct {
	Container     string `mapstructure:"container"`
	Message       string `mapstructure:"message"`
	Author        string `mapstructure:"author"`
	Timestamp     string `mapstructure:"timestamp"`
	TimestampAttr string `mapstructure:"timestamp_attr"`
	IDAttr        string `mapstructure:"id_attr"`
	NextPage      string `mapstructure:"next_page"`
	FirstPage     string `mapstructure:"first_page"`
	DisabledClass string `mapstructure:"disabled_class"`
}

// IssueConfig locates rows in an issue list page
type IssueConfig struct {
	Row    string `mapstructure:"row"`
	Author string `mapstructure:"author"`
	Ref    string `mapstructure:"ref"`
}

// AnalysisConfig selects reconstruction options
type AnalysisConfig struct {
	EdgeDirection       string `mapstructure:"edge_direction"`
	AuthorNormalization string `mapstructure:"author_normalization"`
	RequireTimestamp    bool   `mapstructure:"require_timestamp"`
}

// OutputConfig selects where and how the graph is exported
type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"`
}

// Supported output formats
var formats = map[string]bool{"json": true, "yaml": true, "gexf": true, "sqlite": true}

// LoadConfig reads configuration with precedence defaults < file < WEAVER_* env.
// An empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetEnvPrefix("WEAVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults registers default values for every key so env overrides bind
func applyDefaults(v *viper.Viper) {
	v.SetDefault("start_url", "")
	v.SetDefault("user_agent", "forum-weaver/1.0")
	v.SetDefault("request_timeout_ms", 10000)
	v.SetDefault("page_delay_ms", 500)
	v.SetDefault("max_pages", 0)

	v.SetDefault("selectors.container", "#msgs-tree")
	v.SetDefault("selectors.message", ".inner-left-component .msg-item")
	v.SetDefault("selectors.author", ".msg-author")
	v.SetDefault("selectors.timestamp", ".msg-date")
	v.SetDefault("selectors.timestamp_attr", "datetime")
	v.SetDefault("selectors.id_attr", "id")
	v.SetDefault("selectors.next_page", ".lnk-next-page")
	v.SetDefault("selectors.first_page", ".lnk-first-page")
	v.SetDefault("selectors.disabled_class", "disabled")

	v.SetDefault("issues.row", ".js-issue-row")
	v.SetDefault("issues.author", ".opened-by .muted-link")
	v.SetDefault("issues.ref", ".opened-by")

	v.SetDefault("analysis.edge_direction", "reply-to-parent")
	v.SetDefault("analysis.author_normalization", "none")
	v.SetDefault("analysis.require_timestamp", true)

	v.SetDefault("output.path", "graph.json")
	v.SetDefault("output.format", "json")

	v.SetDefault("metrics_path", "metrics.json")
	v.SetDefault("metrics_addr", "")
}

// validate checks that values are sensible. start_url may still be empty
// here because the CLI can supply it as an argument.
func validate(cfg *Config) error {
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.PageDelayMs < 0 {
		return fmt.Errorf("page_delay_ms must be >= 0")
	}
	if cfg.MaxPages < 0 {
		return fmt.Errorf("max_pages must be >= 0")
	}
	if cfg.Selectors.Container == "" || cfg.Selectors.Message == "" || cfg.Selectors.Author == "" {
		return fmt.Errorf("selectors.container, selectors.message and selectors.author are required")
	}
	if !formats[cfg.Output.Format] {
		return fmt.Errorf("output.format %q is not one of json, yaml, gexf, sqlite", cfg.Output.Format)
	}
	if _, err := cfg.ThreadOptions(); err != nil {
		return err
	}
	return nil
}

// Validate re-checks the configuration after callers override fields
func (c *Config) Validate() error {
	if err := validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ThreadOptions converts the analysis section into reconstruction options
func (c *Config) ThreadOptions() (thread.Options, error) {
	opts := thread.DefaultOptions()

	dir, err := thread.ParseDirection(c.Analysis.EdgeDirection)
	if err != nil {
		return opts, err
	}
	norm, err := thread.ParseNormalization(c.Analysis.AuthorNormalization)
	if err != nil {
		return opts, err
	}

	opts.Direction = dir
	opts.Normalization = norm
	opts.RequireTimestamp = c.Analysis.RequireTimestamp
	opts.MaxPages = c.MaxPages
	return opts, nil
}

// RequireStartURL fails when no start URL was configured
func (c *Config) RequireStartURL() error {
	if c.StartURL == "" {
		return errors.New("start_url is required")
	}
	return nil
}
