package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Pipeline PipelineConfig `toml:"pipeline"`
	Render   RenderConfig   `toml:"render"`
	LLM      LLMConfig      `toml:"llm"`
	Claude   ClaudeConfig   `toml:"claude"`
	Gemini   GeminiConfig   `toml:"gemini"`
	Workers  WorkersConfig  `toml:"workers"`
	Logging  LoggingConfig  `toml:"logging"`
}

// PipelineConfig holds the per-run options
type PipelineConfig struct {
	PDFPath   string `toml:"pdf_path" validate:"required"`   // Source PDF file
	OutputDir string `toml:"output_dir" validate:"required"` // Artifact root directory
	ModelName string `toml:"model_name"`                     // Provider/model identifier, e.g. "gemini-2.5-flash" or "claude/claude-sonnet-4-20250514"

	SkipOCRIfExists      bool `toml:"skip_ocr_if_exists"`      // Reuse existing page image/text artifacts (default true)
	SkipMetadataIfExists bool `toml:"skip_metadata_if_exists"` // Reuse existing metadata artifacts (default true)

	MaxPages int `toml:"max_pages"` // Page cap for partial runs, 0 = all pages
}

// RenderConfig controls page image rendering during extraction
type RenderConfig struct {
	DPI           float64 `toml:"dpi" validate:"gt=0"` // Render resolution for full-page images
	MinFigureArea int     `toml:"min_figure_area"`     // Figures smaller than this many pixels are dropped as icons
}

// LLMConfig holds provider-independent model call settings
type LLMConfig struct {
	DefaultProvider string  `toml:"default_provider" validate:"oneof=gemini claude"`
	Timeout         string  `toml:"timeout"`          // Per-call timeout, e.g. "120s"
	MaxRetries      int     `toml:"max_retries"`      // Bounded retry for retryable call failures
	RequestsPerMin  float64 `toml:"requests_per_min"` // Rate limit applied across all model calls, 0 = unlimited
}

// ClaudeConfig contains Anthropic Claude settings
type ClaudeConfig struct {
	APIKey    string `toml:"api_key"` // Fallback when ANTHROPIC_API_KEY is unset
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// GeminiConfig contains Google Gemini settings
type GeminiConfig struct {
	APIKey    string `toml:"api_key"` // Fallback when GEMINI_API_KEY is unset
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

// WorkersConfig bounds per-page concurrency inside a stage
type WorkersConfig struct {
	PageConcurrency int `toml:"page_concurrency" validate:"gte=1"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the configuration defaults applied before any file
// or environment override.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			ModelName:            "gemini-2.5-flash",
			SkipOCRIfExists:      true,
			SkipMetadataIfExists: true,
		},
		Render: RenderConfig{
			DPI:           144,
			MinFigureArea: 400,
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Timeout:         "120s",
			MaxRetries:      3,
			RequestsPerMin:  60,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
		},
		Gemini: GeminiConfig{
			Model:     "gemini-2.5-flash",
			MaxTokens: 8192,
		},
		Workers: WorkersConfig{
			PageConcurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadConfig builds the effective configuration: defaults -> TOML file (if
// given) -> FOLIUM_* environment overrides. Validation runs last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate checks the configuration, including that the source PDF exists,
// and creates the output directory.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := os.Stat(c.Pipeline.PDFPath); err != nil {
		return fmt.Errorf("pdf file not found: %s", c.Pipeline.PDFPath)
	}

	if err := os.MkdirAll(c.Pipeline.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", c.Pipeline.OutputDir, err)
	}

	return nil
}

// TimeoutDuration parses the per-call LLM timeout, falling back to two
// minutes if unset or malformed.
func (c LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// BasePath returns the artifact root for the configured PDF:
// output_dir/<pdf stem>
func (c *Config) BasePath() string {
	stem := strings.TrimSuffix(filepath.Base(c.Pipeline.PDFPath), filepath.Ext(c.Pipeline.PDFPath))
	return filepath.Join(c.Pipeline.OutputDir, stem)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FOLIUM_PDF_PATH"); v != "" {
		cfg.Pipeline.PDFPath = v
	}
	if v := os.Getenv("FOLIUM_OUTPUT_DIR"); v != "" {
		cfg.Pipeline.OutputDir = v
	}
	if v := os.Getenv("FOLIUM_MODEL"); v != "" {
		cfg.Pipeline.ModelName = v
	}
	if v := os.Getenv("FOLIUM_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.MaxPages = n
		}
	}
	if v := os.Getenv("FOLIUM_SKIP_OCR_IF_EXISTS"); v != "" {
		cfg.Pipeline.SkipOCRIfExists = parseBool(v, cfg.Pipeline.SkipOCRIfExists)
	}
	if v := os.Getenv("FOLIUM_SKIP_METADATA_IF_EXISTS"); v != "" {
		cfg.Pipeline.SkipMetadataIfExists = parseBool(v, cfg.Pipeline.SkipMetadataIfExists)
	}
	if v := os.Getenv("FOLIUM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
}

func parseBool(s string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return b
}
