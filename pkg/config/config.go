package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CreatorPlaceholder is replaced by the creator identifier in Itch.BaseURL
const CreatorPlaceholder = "{creator}"

// Config holds all configuration options for itcharchive
type Config struct {
	// Platform endpoints and request identity
	Itch ItchConfig `yaml:"itch" json:"itch"`

	// Outbound HTTP behaviour
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Asset download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// HTTP API settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ItchConfig holds platform-specific configuration
type ItchConfig struct {
	// BaseURL is the creator page template; {creator} is substituted
	BaseURL   string `yaml:"base_url" json:"base_url"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	MaxPages  int    `yaml:"max_pages" json:"max_pages"`
}

// HTTPConfig holds outbound request configuration
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" json:"burst_size"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory          string `yaml:"directory" json:"directory"`
	ArchiveNamePattern string `yaml:"archive_name_pattern" json:"archive_name_pattern"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int   `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	MaxAssetSize        int64 `yaml:"max_asset_size" json:"max_asset_size"`
	SkipScreenshots     bool  `yaml:"skip_screenshots" json:"skip_screenshots"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Address        string        `yaml:"address" json:"address"`
	JobTTL         time.Duration `yaml:"job_ttl" json:"job_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`

	// Rotation of File
	MaxSizeMB  int  `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Itch: ItchConfig{
			BaseURL:   "https://" + CreatorPlaceholder + ".itch.io",
			UserAgent: "itcharchive/1.0 (+https://itch.io creator page archiver)",
			MaxPages:  50,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 4,
			BurstSize:         6,
		},
		Output: OutputConfig{
			Directory:          filepath.Join(os.TempDir(), "itcharchive"),
			ArchiveNamePattern: "{creator}_itch.zip",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			MaxAssetSize:        25 << 20,
		},
		Server: ServerConfig{
			Address:        ":8080",
			JobTTL:         time.Hour,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("ITCHARCHIVE_BASE_URL"); baseURL != "" {
		c.Itch.BaseURL = baseURL
	}
	if userAgent := os.Getenv("ITCHARCHIVE_USER_AGENT"); userAgent != "" {
		c.Itch.UserAgent = userAgent
	}

	if timeout := os.Getenv("ITCHARCHIVE_REQUEST_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid ITCHARCHIVE_REQUEST_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}
	if rps := os.Getenv("ITCHARCHIVE_REQUESTS_PER_SECOND"); rps != "" {
		val, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("invalid ITCHARCHIVE_REQUESTS_PER_SECOND: %w", err)
		}
		c.HTTP.RequestsPerSecond = val
	}

	if outputDir := os.Getenv("ITCHARCHIVE_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}

	if concurrent := os.Getenv("ITCHARCHIVE_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}

	if addr := os.Getenv("ITCHARCHIVE_ADDR"); addr != "" {
		c.Server.Address = addr
	}

	if logLevel := os.Getenv("ITCHARCHIVE_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("ITCHARCHIVE_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".itcharchive.yaml",
		".itcharchive.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "itcharchive", "config.yaml"),
			filepath.Join(home, ".itcharchive.yaml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if !strings.Contains(c.Itch.BaseURL, CreatorPlaceholder) {
		errs = append(errs, fmt.Errorf("base URL must contain %s", CreatorPlaceholder))
	} else if _, err := url.Parse(strings.ReplaceAll(c.Itch.BaseURL, CreatorPlaceholder, "x")); err != nil {
		errs = append(errs, fmt.Errorf("base URL is not a valid URL: %w", err))
	}
	if c.Itch.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}

	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.HTTP.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}
	if c.HTTP.RequestsPerSecond > 0 && c.HTTP.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.MaxAssetSize < 0 {
		errs = append(errs, errors.New("max asset size cannot be negative"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if !strings.HasSuffix(c.Output.ArchiveNamePattern, ".zip") {
		errs = append(errs, errors.New("archive name pattern must end in .zip"))
	}

	if c.Server.JobTTL <= 0 {
		errs = append(errs, errors.New("job TTL must be positive"))
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation limits cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// CreatorURL expands the base URL template for a creator
func (c *Config) CreatorURL(creator string) string {
	return strings.ReplaceAll(c.Itch.BaseURL, CreatorPlaceholder, creator)
}

// ArchiveName expands the archive name pattern for a creator
func (c *Config) ArchiveName(creator string) string {
	return strings.ReplaceAll(c.Output.ArchiveNamePattern, CreatorPlaceholder, creator)
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if concurrent, ok := flags["concurrent-downloads"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.HTTP.Timeout = timeout
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Address = addr
	}
	if baseURL, ok := flags["base-url"].(string); ok && baseURL != "" {
		c.Itch.BaseURL = baseURL
	}
	if skip, ok := flags["skip-screenshots"].(bool); ok {
		c.Download.SkipScreenshots = skip
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".itcharchive.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
