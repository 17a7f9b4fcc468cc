package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// RequiredPageSize is the only page size the dashboard supports.
const RequiredPageSize = 5

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Sales     SalesConfig     `koanf:"sales"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string          `koanf:"host"`
	Port       int             `koanf:"port"`
	Mode       string          `koanf:"mode"`
	CSRFSecret string          `koanf:"csrf_secret"`
	Timeout    string          `koanf:"timeout"`
	CORS       CORSConfig      `koanf:"cors"`
	RateLimit  RateLimitConfig `koanf:"rate_limit"`
	Cache      CacheConfig     `koanf:"cache"`
}

// CORSConfig holds CORS middleware settings.
type CORSConfig struct {
	AllowOrigins     []string `koanf:"allow_origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           string   `koanf:"max_age"`
}

// RateLimitConfig limits sale submissions per client IP.
type RateLimitConfig struct {
	Enabled bool `koanf:"enabled"`
	RPS     int  `koanf:"rps"`
	Burst   int  `koanf:"burst"`
}

// CacheConfig holds settings for the JSON dashboard response cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	TTL     string `koanf:"ttl"`
	MaxSize int    `koanf:"max_size"`
}

// SalesConfig points at the external sales backend.
type SalesConfig struct {
	BaseURL            string   `koanf:"base_url"`
	Timeout            string   `koanf:"timeout"`
	RefreshAfterSubmit bool     `koanf:"refresh_after_submit"`
	Courses            []string `koanf:"courses"`
}

// DashboardConfig holds presentation settings.
type DashboardConfig struct {
	PageSize       int    `koanf:"page_size"`
	Timezone       string `koanf:"timezone"`
	CurrencySymbol string `koanf:"currency_symbol"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator; single underscores stay part of the key.
// APP__SALES__BASE_URL=http://sales:8080 overrides sales.base_url.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	if err := k.Load(env.Provider("APP__", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps APP__SALES__BASE_URL to sales.base_url.
func envKey(s string) string {
	key := strings.TrimPrefix(s, "APP__")
	key = strings.ToLower(key)
	return strings.ReplaceAll(key, "__", ".")
}

// Validate applies defaults, normalizes values, and checks supported ranges.
// Errors name the offending key by its dotted path.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSales(); err != nil {
		return err
	}
	if err := c.validateDashboard(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	if _, err := optionalDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}

	c.Server.CORS.MaxAge = strings.TrimSpace(c.Server.CORS.MaxAge)
	if _, err := optionalDuration("server.cors.max_age", c.Server.CORS.MaxAge); err != nil {
		return err
	}
	origins := make([]string, 0, len(c.Server.CORS.AllowOrigins))
	for _, o := range c.Server.CORS.AllowOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.CORS.AllowOrigins = origins
	if c.Server.CORS.AllowCredentials {
		for _, o := range origins {
			if o == "*" {
				return fmt.Errorf("server.cors.allow_credentials cannot be combined with a wildcard origin")
			}
		}
	}

	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RPS <= 0 {
			return fmt.Errorf("invalid server.rate_limit.rps %d: must be positive when rate limiting is enabled", c.Server.RateLimit.RPS)
		}
		if c.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf("invalid server.rate_limit.burst %d: must be positive when rate limiting is enabled", c.Server.RateLimit.Burst)
		}
	}

	c.Server.Cache.TTL = strings.TrimSpace(c.Server.Cache.TTL)
	if c.Server.Cache.Enabled {
		d, err := time.ParseDuration(c.Server.Cache.TTL)
		if err != nil {
			return fmt.Errorf("invalid server.cache.ttl %q: %w", c.Server.Cache.TTL, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid server.cache.ttl %q: must be greater than 0", c.Server.Cache.TTL)
		}
		if c.Server.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid server.cache.max_size %d: must be positive when caching is enabled", c.Server.Cache.MaxSize)
		}
	}
	return nil
}

func (c *Config) validateSales() error {
	base := strings.TrimRight(strings.TrimSpace(c.Sales.BaseURL), "/")
	if base == "" {
		return fmt.Errorf("sales.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid sales.base_url %q: must be an absolute http(s) URL", c.Sales.BaseURL)
	}
	c.Sales.BaseURL = base

	c.Sales.Timeout = strings.TrimSpace(c.Sales.Timeout)
	if c.Sales.Timeout == "" {
		c.Sales.Timeout = "10s"
	}
	if _, err := optionalDuration("sales.timeout", c.Sales.Timeout); err != nil {
		return err
	}

	courses := make([]string, 0, len(c.Sales.Courses))
	seen := make(map[string]struct{}, len(c.Sales.Courses))
	for idx, course := range c.Sales.Courses {
		course = strings.TrimSpace(course)
		if course == "" {
			return fmt.Errorf("sales.courses[%d] cannot be empty", idx)
		}
		if _, dup := seen[course]; dup {
			continue
		}
		seen[course] = struct{}{}
		courses = append(courses, course)
	}
	if len(courses) == 0 {
		courses = []string{"Java", "React", "Spring"}
	}
	c.Sales.Courses = courses
	return nil
}

func (c *Config) validateDashboard() error {
	if c.Dashboard.PageSize == 0 {
		c.Dashboard.PageSize = RequiredPageSize
	}
	if c.Dashboard.PageSize != RequiredPageSize {
		return fmt.Errorf("invalid dashboard.page_size %d: must be %d", c.Dashboard.PageSize, RequiredPageSize)
	}

	tz := strings.TrimSpace(c.Dashboard.Timezone)
	if tz == "" {
		tz = "Local"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid dashboard.timezone %q: %w", c.Dashboard.Timezone, err)
	}
	c.Dashboard.Timezone = tz

	if strings.TrimSpace(c.Dashboard.CurrencySymbol) == "" {
		c.Dashboard.CurrencySymbol = "₹"
	}
	return nil
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

// optionalDuration parses a validated duration field. Empty means unset and
// returns zero.
func optionalDuration(path, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", path, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be greater than 0", path, value)
	}
	return d, nil
}

// RequestTimeout returns server.timeout, or zero when unset.
func (s ServerConfig) RequestTimeout() time.Duration {
	d, _ := optionalDuration("server.timeout", s.Timeout)
	return d
}

// MaxAgeDuration returns server.cors.max_age, or 12h when unset.
func (c CORSConfig) MaxAgeDuration() time.Duration {
	d, _ := optionalDuration("server.cors.max_age", c.MaxAge)
	if d == 0 {
		return 12 * time.Hour
	}
	return d
}

// TTLDuration returns server.cache.ttl, or zero when unset.
func (c CacheConfig) TTLDuration() time.Duration {
	d, _ := optionalDuration("server.cache.ttl", c.TTL)
	return d
}

// TimeoutDuration returns sales.timeout, or zero when unset.
func (s SalesConfig) TimeoutDuration() time.Duration {
	d, _ := optionalDuration("sales.timeout", s.Timeout)
	return d
}

// Location resolves dashboard.timezone. Validate guarantees it loads.
func (d DashboardConfig) Location() *time.Location {
	if d.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in secret.
func CountSecretClasses(secret string) int {
	var lower, upper, digit, symbol bool
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	classes := 0
	for _, has := range []bool{lower, upper, digit, symbol} {
		if has {
			classes++
		}
	}
	return classes
}
