package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the suite configuration
type Config struct {
	App         AppConfig         `toml:"app"`
	Browser     BrowserConfig     `toml:"browser"`
	Session     SessionConfig     `toml:"session"`
	Run         RunConfig         `toml:"run"`
	Ingestion   IngestionConfig   `toml:"ingestion"`
	Kafka       KafkaConfig       `toml:"kafka"`
	Output      OutputConfig      `toml:"output"`
	Logging     LoggingConfig     `toml:"logging"`
	Credentials map[string]string `toml:"credentials"` // Overrides for connector credential environment variables

	// UnresolvedCredentials lists [credentials] entries whose {KEY}
	// references were not found in the environment
	UnresolvedCredentials []string `toml:"-"`
}

type AppConfig struct {
	BaseURL  string `toml:"base_url" validate:"required,url"`
	HomePath string `toml:"home_path" default:"/my-data"`
}

// BrowserConfig controls the headless Chrome instance driven by chromedp
type BrowserConfig struct {
	Headless      bool   `toml:"headless" default:"true"`
	WindowWidth   int    `toml:"window_width" default:"1920" validate:"gt=0"`
	WindowHeight  int    `toml:"window_height" default:"1080" validate:"gt=0"`
	ActionTimeout string `toml:"action_timeout" default:"30s" validate:"duration"`
	ExpectTimeout string `toml:"expect_timeout" default:"10s" validate:"duration"`
	PollInterval  string `toml:"poll_interval" default:"250ms" validate:"duration"`
	ExecPath      string `toml:"exec_path"` // Optional Chrome binary, chromedp finds one on PATH otherwise
}

type SessionConfig struct {
	StorageState string `toml:"storage_state" default:"test/.auth/admin.json"` // Pre-authenticated admin session
}

// RunConfig controls which groups run and how failures are retried
type RunConfig struct {
	IsOSS       bool     `toml:"is_oss"`
	Trace       string   `toml:"trace" default:"on-first-retry" validate:"oneof=off on on-first-retry retain-on-failure"`
	Retries     int      `toml:"retries" default:"1" validate:"gte=0,lte=5"`
	StepTimeout string   `toml:"step_timeout" default:"11m" validate:"duration"`
	Tags        []string `toml:"tags"`      // Regex include list, empty runs everything
	SkipTags    []string `toml:"skip_tags"` // Regex exclude list
}

type IngestionConfig struct {
	StatusTimeout string `toml:"status_timeout" default:"5m" validate:"duration"`
	StatusPoll    string `toml:"status_poll" default:"5s" validate:"duration"`
}

type KafkaConfig struct {
	Brokers    []string `toml:"brokers"`
	SeedTopics bool     `toml:"seed_topics"`
}

type OutputConfig struct {
	ResultsDir string `toml:"results_dir" default:"test/results"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output" default:"[\"console\"]"` // "console", "file"
}

// NewDefaultConfig returns a config populated from struct defaults
func NewDefaultConfig() *Config {
	config := &Config{}
	if err := defaults.Set(config); err != nil {
		// Defaults are static tags, a failure here is a programming error
		panic(fmt.Sprintf("invalid config defaults: %v", err))
	}
	return config
}

// LoadConfig loads configuration with priority: default -> file -> env
func LoadConfig(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	config.UnresolvedCredentials = config.ResolveCredentials(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies E2E_* environment variable overrides to config
func applyEnvOverrides(config *Config) error {
	if baseURL := os.Getenv("E2E_BASE_URL"); baseURL != "" {
		config.App.BaseURL = baseURL
	}

	if isOSS := os.Getenv("E2E_IS_OSS"); isOSS != "" {
		v, err := strconv.ParseBool(isOSS)
		if err != nil {
			return fmt.Errorf("invalid E2E_IS_OSS value %q: %w", isOSS, err)
		}
		config.Run.IsOSS = v
	}

	if trace := os.Getenv("E2E_TRACE"); trace != "" {
		config.Run.Trace = trace
	}

	if retries := os.Getenv("E2E_RETRIES"); retries != "" {
		r, err := strconv.Atoi(retries)
		if err != nil {
			return fmt.Errorf("invalid E2E_RETRIES value %q: %w", retries, err)
		}
		config.Run.Retries = r
	}

	if headless := os.Getenv("E2E_HEADLESS"); headless != "" {
		v, err := strconv.ParseBool(headless)
		if err != nil {
			return fmt.Errorf("invalid E2E_HEADLESS value %q: %w", headless, err)
		}
		config.Browser.Headless = v
	}

	if state := os.Getenv("E2E_STORAGE_STATE"); state != "" {
		config.Session.StorageState = state
	}

	if dir := os.Getenv("E2E_RESULTS_DIR"); dir != "" {
		config.Output.ResultsDir = dir
	}

	if tags := os.Getenv("E2E_TAGS"); tags != "" {
		config.Run.Tags = splitLines(tags)
	}

	if level := os.Getenv("E2E_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// OSS builds trace nothing unless the trace mode was set explicitly
	if config.Run.IsOSS && os.Getenv("E2E_TRACE") == "" {
		config.Run.Trace = "off"
	}

	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the config against its struct constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Credential returns the [credentials] override for key, or the environment value
func (c *Config) Credential(key string) string {
	if v, ok := c.Credentials[key]; ok && v != "" {
		return v
	}
	return os.Getenv(key)
}

// BaseURL returns the application URL without a trailing slash
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.App.BaseURL, "/")
}

func (c BrowserConfig) ActionTimeoutDuration() time.Duration { return mustDuration(c.ActionTimeout) }
func (c BrowserConfig) ExpectTimeoutDuration() time.Duration { return mustDuration(c.ExpectTimeout) }
func (c BrowserConfig) PollIntervalDuration() time.Duration  { return mustDuration(c.PollInterval) }
func (c RunConfig) StepTimeoutDuration() time.Duration       { return mustDuration(c.StepTimeout) }
func (c IngestionConfig) StatusTimeoutDuration() time.Duration {
	return mustDuration(c.StatusTimeout)
}
func (c IngestionConfig) StatusPollDuration() time.Duration { return mustDuration(c.StatusPoll) }

// mustDuration parses a duration that Validate has already accepted
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// splitLines splits one entry per line. Entries are regexes, which may
// contain commas.
func splitLines(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
