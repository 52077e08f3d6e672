package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "PCA"

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Render    RenderConfig    `yaml:"render" envconfig:"RENDER"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
}

// AnalysisConfig controls which data is analysed and how it is preprocessed.
type AnalysisConfig struct {
	InputFile     string   `yaml:"input_file" envconfig:"INPUT_FILE"`
	Sheet         string   `yaml:"sheet" envconfig:"SHEET"`
	GroupColumn   string   `yaml:"group_column" envconfig:"GROUP_COLUMN" validate:"required"`
	Measurements  []string `yaml:"measurements" envconfig:"MEASUREMENTS"`
	Missing       string   `yaml:"missing" envconfig:"MISSING" validate:"oneof=drop mean median"`
	MissingTokens []string `yaml:"missing_tokens" envconfig:"MISSING_TOKENS"`
	Components    int      `yaml:"components" envconfig:"COMPONENTS" validate:"gte=0"`
	Scale         bool     `yaml:"scale" envconfig:"SCALE"`
	Correlation   string   `yaml:"correlation" envconfig:"CORRELATION" validate:"oneof=pairwise complete"`
}

// RenderConfig controls figure output.
type RenderConfig struct {
	Format            string   `yaml:"format" envconfig:"FORMAT" validate:"oneof=png svg"`
	Width             float64  `yaml:"width" envconfig:"WIDTH" validate:"gte=2"`
	Height            float64  `yaml:"height" envconfig:"HEIGHT" validate:"gte=2"`
	Biplots           []string `yaml:"biplots" envconfig:"BIPLOTS" validate:"dive,pcpair"`
	LoadingComponents int      `yaml:"loading_components" envconfig:"LOADING_COMPONENTS" validate:"gte=1"`
	ArrowScale        float64  `yaml:"arrow_scale" envconfig:"ARROW_SCALE" validate:"gte=0"`
	Parallelism       int      `yaml:"parallelism" envconfig:"PARALLELISM" validate:"gte=1"`
}

// TelemetryConfig toggles the run trace and metrics files.
type TelemetryConfig struct {
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Load builds the configuration from defaults, then the YAML file at
// configFile (or the first config file found in the usual locations when
// configFile is empty), then PCA_* environment variables.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave file and default values untouched, so env wins
	// only where it is set.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct tags and the cross-field rules. Biplots naming a
// component beyond the retained ones are allowed; the renderer skips them.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.RegisterValidation("pcpair", isPCPair); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return err
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file path is required for output %q", c.Logging.Output)
	}

	return nil
}

func isPCPair(fl validator.FieldLevel) bool {
	_, _, err := ParsePCPair(fl.Field().String())
	return err == nil
}

// ParsePCPair parses a biplot selector such as "1:2" into one-based
// component indices. The two components must differ.
func ParsePCPair(s string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid component pair %q: want A:B", s)
	}
	a, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(parts[0]), "PC"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid component pair %q: %w", s, err)
	}
	b, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(parts[1]), "PC"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid component pair %q: %w", s, err)
	}
	if a < 1 || b < 1 || a == b {
		return 0, 0, fmt.Errorf("invalid component pair %q", s)
	}
	return a, b, nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"pca-report.yaml",
		"configs/pca-report.yaml",
		"../configs/pca-report.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pca-report.log",
		},
		Paths: PathsConfig{
			OutputDir: "output",
		},
		Analysis: AnalysisConfig{
			GroupColumn:   "species",
			Missing:       "drop",
			MissingTokens: []string{"NA", "NaN", ""},
			Scale:         true,
			Correlation:   "pairwise",
		},
		Render: RenderConfig{
			Format:            "png",
			Width:             8,
			Height:            6,
			Biplots:           []string{"1:2", "1:3", "2:3"},
			LoadingComponents: 4,
			ArrowScale:        0,
			Parallelism:       4,
		},
		Telemetry: TelemetryConfig{
			EnableTracing: true,
			EnableMetrics: true,
			SampleRatio:   1.0,
		},
	}
}
