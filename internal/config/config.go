package config

import (
	"fmt"
	"time"
)

type Config struct {
	Browser             BrowserConfig       `yaml:"browser"`
	HTTP                HTTPConfig          `yaml:"http"`
	Backoff             BackoffConfig       `yaml:"backoff"`
	RobotsCacheTTLHours int                 `yaml:"robots_cache_ttl_hours"`
	RateLimit           RateLimitConfig     `yaml:"rate_limit"`
	Sources             []SourceConfig      `yaml:"sources"`
	Filter              FilterConfig        `yaml:"filter"`
	Dedup               DedupConfig         `yaml:"dedup"`
	Media               MediaConfig         `yaml:"media"`
	Publish             PublishConfig       `yaml:"publish"`
	Scheduler           SchedulerConfig     `yaml:"scheduler"`
	Observability       ObservabilityConfig `yaml:"observability"`
}

type BrowserConfig struct {
	ChromePath       string `yaml:"chrome_path"`
	Headless         bool   `yaml:"headless"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	WaitLoadTimeoutS int    `yaml:"wait_load_timeout_s"`
}

type HTTPConfig struct {
	UserAgent        string `yaml:"user_agent"`
	ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
	TotalTimeoutMS   int    `yaml:"total_timeout_ms"`
	MaxRetries       int    `yaml:"max_retries"`
}

type BackoffConfig struct {
	MinMS     int `yaml:"min_ms"`
	MaxMS     int `yaml:"max_ms"`
	JitterPct int `yaml:"jitter_pct"`
}

// RateLimitConfig bounds the request rate per host on the HTTP fetch path.
type RateLimitConfig struct {
	RPM int `yaml:"rpm"`
}

// SourceConfig describes one notice board to scan. Selectors are
// site-specific and live in their own YAML file.
type SourceConfig struct {
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	SelectorsFile string `yaml:"selectors_file"`
}

// FilterConfig holds the relevance keyword lists. Empty lists fall back to
// the defaults documented in the filter package.
type FilterConfig struct {
	AllowKeywords []string `yaml:"allow_keywords"`
	AllowPrograms []string `yaml:"allow_programs"`
	DenyKeywords  []string `yaml:"deny_keywords"`
}

type DedupConfig struct {
	Path string `yaml:"path"`
	Cap  int    `yaml:"cap"`
}

type MediaConfig struct {
	TempDir          string   `yaml:"temp_dir"`
	MaxPages         int      `yaml:"max_pages"`
	MaxWidth         int      `yaml:"max_width"`
	MaxHeight        int      `yaml:"max_height"`
	MinImageArea     int      `yaml:"min_image_area"`
	ContentSelectors []string `yaml:"content_selectors"`
}

type PublishConfig struct {
	GraphURL       string `yaml:"graph_url"`
	AllowTextOnly  bool   `yaml:"allow_text_only"`
	UploadRetries  int    `yaml:"upload_retries"`
	RetryDelayMS   int    `yaml:"retry_delay_ms"`
	PostGapS       int    `yaml:"post_gap_s"`
	TotalTimeoutMS int    `yaml:"total_timeout_ms"`
}

type SchedulerConfig struct {
	Mode      string `yaml:"mode"`
	IntervalS int    `yaml:"interval_s"`
}

type ObservabilityConfig struct {
	LogPath    string `yaml:"log_path"`
	LogLevel   string `yaml:"log_level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Defaults applied before validation.
const (
	DefaultDedupCap      = 12
	DefaultMaxPages      = 10
	DefaultMaxWidth      = 1280
	DefaultMaxHeight     = 1810
	DefaultMinImageArea  = 40000
	DefaultUploadRetries = 3
	DefaultRetryDelayMS  = 2000
	DefaultPostGapS      = 60
	DefaultGraphURL      = "https://graph.facebook.com/v19.0"
)

func (c *Config) applyDefaults() {
	if c.Dedup.Cap == 0 {
		c.Dedup.Cap = DefaultDedupCap
	}
	if c.Media.MaxPages == 0 {
		c.Media.MaxPages = DefaultMaxPages
	}
	if c.Media.MaxWidth == 0 {
		c.Media.MaxWidth = DefaultMaxWidth
	}
	if c.Media.MaxHeight == 0 {
		c.Media.MaxHeight = DefaultMaxHeight
	}
	if c.Media.MinImageArea == 0 {
		c.Media.MinImageArea = DefaultMinImageArea
	}
	if c.Publish.UploadRetries == 0 {
		c.Publish.UploadRetries = DefaultUploadRetries
	}
	if c.Publish.RetryDelayMS == 0 {
		c.Publish.RetryDelayMS = DefaultRetryDelayMS
	}
	if c.Publish.PostGapS == 0 {
		c.Publish.PostGapS = DefaultPostGapS
	}
	if c.Publish.GraphURL == "" {
		c.Publish.GraphURL = DefaultGraphURL
	}
	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = "oneshot"
	}
}

// Validation
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source is required")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if src.URL == "" {
			return fmt.Errorf("sources[%d].url is required", i)
		}
		if src.SelectorsFile == "" {
			return fmt.Errorf("sources[%d].selectors_file is required", i)
		}
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.RateLimit.RPM <= 0 {
		return fmt.Errorf("rate_limit.rpm must be > 0")
	}
	if c.Dedup.Path == "" {
		return fmt.Errorf("dedup.path is required")
	}
	if c.Dedup.Cap <= 0 {
		return fmt.Errorf("dedup.cap must be > 0")
	}
	if c.Media.MaxPages <= 0 {
		return fmt.Errorf("media.max_pages must be > 0")
	}
	if c.Media.MaxWidth <= 0 || c.Media.MaxHeight <= 0 {
		return fmt.Errorf("media.max_width and media.max_height must be > 0")
	}
	if c.Media.MinImageArea < 0 {
		return fmt.Errorf("media.min_image_area must be >= 0")
	}
	if c.Publish.UploadRetries <= 0 {
		return fmt.Errorf("publish.upload_retries must be > 0")
	}
	if c.Publish.PostGapS < 0 {
		return fmt.Errorf("publish.post_gap_s must be >= 0")
	}
	if c.Scheduler.Mode != "oneshot" && c.Scheduler.Mode != "interval" {
		return fmt.Errorf("scheduler.mode must be 'oneshot' or 'interval'")
	}
	if c.Scheduler.Mode == "interval" && c.Scheduler.IntervalS <= 0 {
		return fmt.Errorf("scheduler.interval_s must be > 0 when mode is 'interval'")
	}
	if c.Observability.LogPath == "" {
		return fmt.Errorf("observability.log_path is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	if c.RobotsCacheTTLHours <= 0 {
		return fmt.Errorf("robots_cache_ttl_hours must be > 0")
	}
	if c.Backoff.MinMS <= 0 {
		return fmt.Errorf("backoff.min_ms must be > 0")
	}
	if c.Backoff.MaxMS <= 0 {
		return fmt.Errorf("backoff.max_ms must be > 0")
	}
	if c.Backoff.MinMS > c.Backoff.MaxMS {
		return fmt.Errorf("backoff.min_ms must be <= backoff.max_ms")
	}
	if c.Backoff.JitterPct < 0 || c.Backoff.JitterPct > 100 {
		return fmt.Errorf("backoff.jitter_pct must be between 0 and 100")
	}
	if c.Browser.ChromePath == "" {
		return fmt.Errorf("browser.chrome_path is required")
	}
	if c.Browser.PageTimeoutS <= 0 {
		return fmt.Errorf("browser.page_timeout_s must be > 0")
	}
	if c.Browser.WaitLoadTimeoutS <= 0 {
		return fmt.Errorf("browser.wait_load_timeout_s must be > 0")
	}
	return nil
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.Backoff.MinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.Backoff.MaxMS) * time.Millisecond
}

func (c *Config) GetRobotsCacheTTL() time.Duration {
	return time.Duration(c.RobotsCacheTTLHours) * time.Hour
}

func (c *Config) GetPageTimeout() time.Duration {
	return time.Duration(c.Browser.PageTimeoutS) * time.Second
}

func (c *Config) GetWaitLoadTimeout() time.Duration {
	return time.Duration(c.Browser.WaitLoadTimeoutS) * time.Second
}

func (c *Config) GetUploadRetryDelay() time.Duration {
	return time.Duration(c.Publish.RetryDelayMS) * time.Millisecond
}

func (c *Config) GetPostGap() time.Duration {
	return time.Duration(c.Publish.PostGapS) * time.Second
}

func (c *Config) GetSchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.IntervalS) * time.Second
}
