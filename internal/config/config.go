package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCheckInterval    = "1h"
	DefaultTimeout          = "30s"
	DefaultRetryCount       = 3
	DefaultRetryDelay       = "0s"
	DefaultErrorThreshold   = 3
	DefaultCheckConcurrency = 20
	DefaultUserAgent        = "SiteSentinel/1.0"
)

// Config represents the sentinel configuration
type Config struct {
	CheckInterval    string           `yaml:"check_interval"`
	Timeout          string           `yaml:"timeout"`
	RetryCount       int              `yaml:"retry_count"`
	RetryDelay       string           `yaml:"retry_delay"`
	ErrorThreshold   int              `yaml:"error_threshold"`
	CheckConcurrency int              `yaml:"check_concurrency"`
	UserAgent        string           `yaml:"user_agent"`
	Targets          []string         `yaml:"targets"`
	Spreadsheet      string           `yaml:"spreadsheet,omitempty"`
	DNS              DNSConfig        `yaml:"dns"`
	Screenshot       ScreenshotConfig `yaml:"screenshot"`
	Metadata         MetadataConfig   `yaml:"metadata"`
	Alerts           AlertsConfig     `yaml:"alerts"`
	Enrich           EnrichConfig     `yaml:"enrich"`
	API              APIConfig        `yaml:"api"`
	Logging          LoggingConfig    `yaml:"logging"`
}

// DNSConfig controls how target IPs are resolved
type DNSConfig struct {
	Server  string `yaml:"server,omitempty"` // host:port, empty means /etc/resolv.conf
	Timeout string `yaml:"timeout"`
}

var DefaultDNSConfig = DNSConfig{
	Timeout: "5s",
}

// ScreenshotConfig controls evidence capture
type ScreenshotConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dir         string `yaml:"dir"`
	TTL         string `yaml:"ttl"`
	Timeout     string `yaml:"timeout"`
	Wait        string `yaml:"wait"` // "networkidle" or "load"
	Attempts    int    `yaml:"attempts"`
	RetryDelay  string `yaml:"retry_delay"`
	Concurrency int    `yaml:"concurrency"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
}

var DefaultScreenshotConfig = ScreenshotConfig{
	Enabled:     true,
	Dir:         "screenshots",
	TTL:         "1h",
	Timeout:     "60s",
	Wait:        WaitNetworkIdle,
	Attempts:    3,
	RetryDelay:  "2s",
	Concurrency: 15,
	Width:       1366,
	Height:      768,
}

// MetadataConfig selects the durable capture metadata backend
type MetadataConfig struct {
	Backend       string `yaml:"backend"` // "json", "sqlite" or "redis"
	Path          string `yaml:"path,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	RedisKey      string `yaml:"redis_key,omitempty"`
}

var DefaultMetadataConfig = MetadataConfig{
	Backend:  BackendJSON,
	Path:     "metadata.json",
	RedisKey: "sentinel:metadata",
}

// AlertsConfig lists the enabled alert sinks
type AlertsConfig struct {
	Log     bool        `yaml:"log"`
	Desktop bool        `yaml:"desktop"`
	Email   EmailConfig `yaml:"email"`
}

var DefaultAlertsConfig = AlertsConfig{
	Log: true,
}

// EmailConfig holds SMTP settings for down alerts
type EmailConfig struct {
	Host     string   `yaml:"host,omitempty"`
	Port     int      `yaml:"port,omitempty"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	From     string   `yaml:"from,omitempty"`
	To       []string `yaml:"to,omitempty"`
}

// Enabled reports whether e-mail alerts are configured
func (e EmailConfig) Enabled() bool {
	return e.Host != "" && len(e.To) > 0
}

// EnrichConfig holds settings for the optional enrichment lookups
type EnrichConfig struct {
	IPInfoToken string `yaml:"ipinfo_token,omitempty"`
	Timeout     string `yaml:"timeout"`
}

var DefaultEnrichConfig = EnrichConfig{
	Timeout: "10s",
}

// APIConfig controls the read-only status API
type APIConfig struct {
	Listen string `yaml:"listen"`
}

var DefaultAPIConfig = APIConfig{
	Listen: ":8080",
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path,omitempty"`
}

var DefaultLoggingConfig = LoggingConfig{
	Level:  "info",
	Format: "text",
}

const (
	WaitNetworkIdle = "networkidle"
	WaitLoad        = "load"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Default returns a config populated with defaults only
func Default() *Config {
	return &Config{
		CheckInterval:    DefaultCheckInterval,
		Timeout:          DefaultTimeout,
		RetryCount:       DefaultRetryCount,
		RetryDelay:       DefaultRetryDelay,
		ErrorThreshold:   DefaultErrorThreshold,
		CheckConcurrency: DefaultCheckConcurrency,
		UserAgent:        DefaultUserAgent,
		DNS:              DefaultDNSConfig,
		Screenshot:       DefaultScreenshotConfig,
		Metadata:         DefaultMetadataConfig,
		Alerts:           DefaultAlertsConfig,
		Enrich:           DefaultEnrichConfig,
		API:              DefaultAPIConfig,
		Logging:          DefaultLoggingConfig,
	}
}

// UnmarshalYAML fills unset fields with defaults
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type raw Config
	r := raw(*Default())

	if err := value.Decode(&r); err != nil {
		return err
	}

	*c = Config(r)
	return nil
}

// configPathOverride is set by the --config flag
var configPathOverride string

// SetConfigPath overrides the default config location
func SetConfigPath(path string) {
	configPathOverride = path
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	if configPathOverride != "" {
		return configPathOverride, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "sentinel", "config.yml"), nil
}

// InitConfig creates the config directory and file with default content
func InitConfig(force bool) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", configPath)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadConfig reads, parses and validates the config file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes and validates raw YAML config
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config back to the file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// AddTarget adds a domain to the static target list
func (c *Config) AddTarget(domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}

	for _, d := range c.Targets {
		if strings.EqualFold(d, domain) {
			return fmt.Errorf("target '%s' already exists", domain)
		}
	}

	c.Targets = append(c.Targets, domain)
	return nil
}

// RemoveTarget removes a domain from the static target list
func (c *Config) RemoveTarget(domain string) error {
	for i, d := range c.Targets {
		if strings.EqualFold(d, strings.TrimSpace(domain)) {
			c.Targets = append(c.Targets[:i], c.Targets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("target '%s' not found", domain)
}

// Resolved returns a copy with ${VAR} placeholders in credential fields
// expanded. The copy is for runtime use and should not be saved.
func (c *Config) Resolved() *Config {
	r := *c
	r.Targets = append([]string(nil), c.Targets...)
	r.Alerts.Email.To = append([]string(nil), c.Alerts.Email.To...)
	r.Alerts.Email.Username = ResolveEnv(c.Alerts.Email.Username)
	r.Alerts.Email.Password = ResolveEnv(c.Alerts.Email.Password)
	r.Metadata.RedisPassword = ResolveEnv(c.Metadata.RedisPassword)
	r.Enrich.IPInfoToken = ResolveEnv(c.Enrich.IPInfoToken)
	return &r
}

// getDefaultConfig returns the default configuration as YAML
func getDefaultConfig() string {
	return fmt.Sprintf(`# Sentinel Configuration
# How often a full sweep runs and how each probe behaves
check_interval: %s
timeout: %s
retry_count: %d
error_threshold: %d
check_concurrency: %d

# Domains to monitor. Each becomes https://www.<domain>/
targets:
  - example.com

# Optional spreadsheet with a "Domain" column
# spreadsheet: domains.xlsx

screenshot:
  enabled: true
  dir: %s
  ttl: %s
  wait: %s
  concurrency: %d

metadata:
  backend: json
  path: %s

alerts:
  log: true
  desktop: false
  # email:
  #   host: smtp.example.com
  #   port: 465
  #   username: ${EMAIL_SENDER}
  #   password: ${EMAIL_PASSWORD}
  #   from: sentinel@example.com
  #   to: [ops@example.com]

api:
  listen: "%s"
`, DefaultCheckInterval, DefaultTimeout, DefaultRetryCount, DefaultErrorThreshold,
		DefaultCheckConcurrency, DefaultScreenshotConfig.Dir, DefaultScreenshotConfig.TTL,
		DefaultScreenshotConfig.Wait, DefaultScreenshotConfig.Concurrency,
		DefaultMetadataConfig.Path, DefaultAPIConfig.Listen)
}

// ResolveEnv replaces environment variable placeholders with actual values
// Supports ${VAR_NAME} syntax
func ResolveEnv(value string) string {
	return os.ExpandEnv(strings.NewReplacer(
		"${", "$",
		"}", "",
	).Replace(value))
}

// Durations is the parsed form of every duration in the config
type Durations struct {
	CheckInterval     time.Duration
	Timeout           time.Duration
	RetryDelay        time.Duration
	DNSTimeout        time.Duration
	ScreenshotTTL     time.Duration
	ScreenshotTimeout time.Duration
	ScreenshotDelay   time.Duration
	EnrichTimeout     time.Duration
}

// ParseDurations parses every duration field, reporting the first invalid one
func (c *Config) ParseDurations() (Durations, error) {
	var d Durations
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"check_interval", c.CheckInterval, &d.CheckInterval},
		{"timeout", c.Timeout, &d.Timeout},
		{"retry_delay", c.RetryDelay, &d.RetryDelay},
		{"dns.timeout", c.DNS.Timeout, &d.DNSTimeout},
		{"screenshot.ttl", c.Screenshot.TTL, &d.ScreenshotTTL},
		{"screenshot.timeout", c.Screenshot.Timeout, &d.ScreenshotTimeout},
		{"screenshot.retry_delay", c.Screenshot.RetryDelay, &d.ScreenshotDelay},
		{"enrich.timeout", c.Enrich.Timeout, &d.EnrichTimeout},
	}

	for _, f := range fields {
		parsed, err := time.ParseDuration(f.value)
		if err != nil {
			return Durations{}, fmt.Errorf(fmtErrInvalidDuration, f.name, err)
		}
		*f.dst = parsed
	}

	return d, nil
}
