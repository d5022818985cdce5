// Package config loads the scraper's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/mostwanted/crawl"
	"github.com/pevans/mostwanted/index"
	"github.com/pevans/mostwanted/logging"
	"github.com/pevans/mostwanted/persons"
	"github.com/pevans/mostwanted/scraper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the file looked for when no path is given.
const DefaultConfigFile = "mostwanted.yaml"

// Configuration validation errors.
var (
	ErrMissingSourcesFile = errors.New("sources_file is required")
	ErrInvalidDelay       = errors.New("crawl.delay must be non-negative")
	ErrInvalidTimeout     = errors.New("http.timeout must be positive")
)

// Config is the complete scraper configuration.
type Config struct {
	SourcesFile string                `yaml:"sources_file"`
	Crawl       CrawlConfig           `yaml:"crawl"`
	HTTP        HTTPConfig            `yaml:"http"`
	Output      OutputConfig          `yaml:"output"`
	Index       IndexConfig           `yaml:"index"`
	Logging     LoggingConfig         `yaml:"logging"`
	Selectors   scraper.ScraperConfig `yaml:"selectors"`
}

// CrawlConfig controls request pacing and failure handling.
type CrawlConfig struct {
	Delay           time.Duration `yaml:"delay"`
	DelayBeforeList bool          `yaml:"delay_before_list"`
	Policy          string        `yaml:"policy"`
}

// HTTPConfig controls the page fetcher.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// OutputConfig controls where the result document is written. Path wins
// over Dir when both are set.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	Path string `yaml:"path"`
}

// IndexConfig controls the local search index.
type IndexConfig struct {
	DSN      string `yaml:"dsn"`
	IDScheme string `yaml:"id_scheme"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SourcesFile: "bad_people_lists.csv",
		Crawl: CrawlConfig{
			Delay:  2 * time.Second,
			Policy: "strict",
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Output: OutputConfig{
			Dir: ".",
		},
		Index: IndexConfig{
			DSN:      "mostwanted.db",
			IDScheme: "stable",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Selectors: scraper.DefaultScraperConfig(),
	}
}

// LoadConfigFile reads the YAML file at path over the defaults. A missing
// file is not an error; the defaults are returned.
func LoadConfigFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Selectors = cfg.Selectors.Merge(scraper.DefaultScraperConfig())

	return cfg, nil
}

// Validate checks the configuration for values the scraper cannot run with.
func (c *Config) Validate() error {
	if c.SourcesFile == "" {
		return ErrMissingSourcesFile
	}
	if c.Crawl.Delay < 0 {
		return ErrInvalidDelay
	}
	if _, err := crawl.ParsePolicy(c.Crawl.Policy); err != nil {
		return fmt.Errorf("crawl.policy: %w", err)
	}
	if c.HTTP.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if _, err := index.ParseIDScheme(c.Index.IDScheme); err != nil {
		return fmt.Errorf("index.id_scheme: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if err := c.Selectors.Detail.Validate(); err != nil {
		return fmt.Errorf("selectors.detail.groups: %w", err)
	}

	return nil
}

// OutputPath returns the result file path for a source code.
func (c *Config) OutputPath(sourceCode string) string {
	if c.Output.Path != "" {
		return c.Output.Path
	}
	return filepath.Join(c.Output.Dir, persons.DefaultPath(sourceCode))
}
