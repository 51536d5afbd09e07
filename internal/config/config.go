package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/crunchdao/crunch-go/internal/progress"
)

// EnvPrefix is the prefix of every environment variable read by LoadFromEnv.
const EnvPrefix = "CRUNCHDAO_"

// Config defines configuration for the crunch CLI.
type Config struct {
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	DataURL   string        `yaml:"data_url"`
	DataDir   string        `yaml:"data_dir"`
	Progress  bool          `yaml:"progress"`
	ChunkSize int64         `yaml:"chunk_size"`
	Timeout   time.Duration `yaml:"timeout"`
	Calendar  string        `yaml:"calendar"`
	Mirror    string        `yaml:"mirror"`
	Log       LogConfig     `yaml:"log"`
}

// LogConfig defines logging behavior.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		BaseURL:   "https://api.tournament.crunchdao.com",
		DataURL:   "https://tournament.crunchdao.com/data",
		DataDir:   ".",
		ChunkSize: 32 * 1024,
		Timeout:   30 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// yamlConfig is used for YAML unmarshaling with human readable sizes and
// durations.
type yamlConfig struct {
	APIKey    string    `yaml:"api_key"`
	BaseURL   string    `yaml:"base_url"`
	DataURL   string    `yaml:"data_url"`
	DataDir   string    `yaml:"data_dir"`
	Progress  *bool     `yaml:"progress"`
	ChunkSize string    `yaml:"chunk_size"`
	Timeout   string    `yaml:"timeout"`
	Calendar  string    `yaml:"calendar"`
	Mirror    string    `yaml:"mirror"`
	Log       LogConfig `yaml:"log"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	override := Config{
		APIKey:   yc.APIKey,
		BaseURL:  yc.BaseURL,
		DataURL:  yc.DataURL,
		DataDir:  yc.DataDir,
		Calendar: yc.Calendar,
		Mirror:   yc.Mirror,
		Log:      yc.Log,
	}
	if yc.Progress != nil {
		override.Progress = *yc.Progress
	}
	if yc.ChunkSize != "" {
		if override.ChunkSize, err = progress.ParseBytes(yc.ChunkSize); err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
	}
	if yc.Timeout != "" {
		if override.Timeout, err = time.ParseDuration(yc.Timeout); err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
	}

	return Default().Merge(override), nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the CRUNCHDAO_ prefix.
func (c *Config) LoadFromEnv() error {
	strs := map[string]*string{
		"API_KEY":    &c.APIKey,
		"BASE_URL":   &c.BaseURL,
		"DATA_URL":   &c.DataURL,
		"DATA_DIR":   &c.DataDir,
		"CALENDAR":   &c.Calendar,
		"MIRROR":     &c.Mirror,
		"LOG_LEVEL":  &c.Log.Level,
		"LOG_FORMAT": &c.Log.Format,
	}
	for name, dst := range strs {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(EnvPrefix + "PROGRESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse %sPROGRESS: %w", EnvPrefix, err)
		}
		c.Progress = b
	}
	if v := os.Getenv(EnvPrefix + "CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse %sCHUNK_SIZE: %w", EnvPrefix, err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv(EnvPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}

	return nil
}

// Validate validates the configuration. The API key is not required here;
// commands that need it check for it themselves.
func (c *Config) Validate() error {
	for name, raw := range map[string]string{"base_url": c.BaseURL, "data_url": c.DataURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: %s must be an http(s) URL, got %q", name, raw)
		}
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.Mirror != "" && !strings.Contains(c.Mirror, "://") {
		return fmt.Errorf("config: mirror must be a bucket URL, got %q", c.Mirror)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.APIKey != "" {
		c.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		c.BaseURL = override.BaseURL
	}
	if override.DataURL != "" {
		c.DataURL = override.DataURL
	}
	if override.DataDir != "" {
		c.DataDir = override.DataDir
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.Calendar != "" {
		c.Calendar = override.Calendar
	}
	if override.Mirror != "" {
		c.Mirror = override.Mirror
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	return c
}
