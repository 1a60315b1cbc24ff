// Package config loads slrextract settings from an optional YAML file,
// overlays environment variables and validates the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	slr "github.com/vivaneiona/genkit-slr"
)

// Config holds all settings of the CLI and the HTTP server.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Run     RunConfig     `yaml:"run"`
	Export  ExportConfig  `yaml:"export"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig selects the Gemini model and its credentials.
type ModelConfig struct {
	// APIKey is normally supplied through GEMINI_API_KEY, not the file.
	APIKey      string  `yaml:"api_key"`
	Name        string  `yaml:"name"`
	Temperature float32 `yaml:"temperature"`
}

// RunConfig controls batching and pacing.
type RunConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	UnitDelay      time.Duration `yaml:"unit_delay"`
	HeaderToken    string        `yaml:"header_token"`

	// PromptDir holds *.twig files overriding the built-in prompts.
	PromptDir string `yaml:"prompt_dir"`
}

// ExportConfig points at the bucket exports are written to.
type ExportConfig struct {
	// BucketURL is a gocloud.dev blob URL, e.g. file:///tmp/out or s3://bucket.
	BucketURL string `yaml:"bucket_url"`
	Prefix    string `yaml:"prefix"`
	Compress  bool   `yaml:"compress"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text (coloured console) or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file or env var says otherwise.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name:        slr.DefaultModel,
			Temperature: slr.DefaultTemperature,
		},
		Run: RunConfig{
			BatchSize:      slr.DefaultBatchSize,
			MaxAttempts:    slr.DefaultMaxAttempts,
			RetryBaseDelay: slr.DefaultRetryBaseDelay,
			UnitDelay:      slr.DefaultUnitDelay,
			HeaderToken:    slr.DefaultHeaderToken,
		},
		Export: ExportConfig{
			Prefix: "slr-results",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  64 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("config load %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("GEMINI_API_KEY"); ok && v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("SLR_MODEL"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("SLR_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value for SLR_BATCH_SIZE=%q: %w", v, err)
		}
		c.Run.BatchSize = n
	}
	if v := os.Getenv("SLR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SLR_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SLR_LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SLR_EXPORT_URL"); v != "" {
		c.Export.BucketURL = v
	}
	return nil
}

// maxAttempts bounds run.max_attempts; longer budgets only add capped waits.
const maxAttempts = 10

// Validate checks ranges and enumerations. The API key is not required here:
// a dry run never needs it.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature must be within [0, 2], got %v", c.Model.Temperature))
	}
	if c.Run.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("run.batch_size must be positive, got %d", c.Run.BatchSize))
	}
	if c.Run.MaxAttempts < 1 || c.Run.MaxAttempts > maxAttempts {
		errs = append(errs, fmt.Errorf("run.max_attempts must be within [1, %d], got %d", maxAttempts, c.Run.MaxAttempts))
	}
	if c.Run.RetryBaseDelay < 0 || c.Run.UnitDelay < 0 {
		errs = append(errs, errors.New("run delays must not be negative"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}

	return errors.Join(errs...)
}

// ExtractorOptions converts the run and model settings into extractor options.
func (c *Config) ExtractorOptions() []slr.Option {
	return []slr.Option{
		slr.WithModel(c.Model.Name),
		slr.WithTemperature(c.Model.Temperature),
		slr.WithBatchSize(c.Run.BatchSize),
		slr.WithRetry(c.Run.MaxAttempts, c.Run.RetryBaseDelay),
		slr.WithUnitDelay(c.Run.UnitDelay),
		slr.WithHeaderToken(c.Run.HeaderToken),
	}
}

// Prompts returns the prompt provider for the run: the built-in templates,
// overridden by any *.twig file in PromptDir.
func (c *Config) Prompts() (slr.PromptProvider, error) {
	if c.Run.PromptDir == "" {
		return slr.DefaultPrompts(), nil
	}
	p, err := slr.NewStickPromptProvider(slr.WithFS(os.DirFS(c.Run.PromptDir), "."))
	if err != nil {
		return nil, fmt.Errorf("load prompts from %s: %w", c.Run.PromptDir, err)
	}
	return p, nil
}
