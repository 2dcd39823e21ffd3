package common

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/gridcheck/internal/interfaces"
)

// Config represents the gridcheck configuration
type Config struct {
	Environment EnvironmentConfig `toml:"environment"`
	Login       LoginConfig       `toml:"login"`
	Browser     BrowserConfig     `toml:"browser"`
	Waits       WaitsConfig       `toml:"waits"`
	Toast       ToastConfig       `toml:"toast"`
	Logging     LoggingConfig     `toml:"logging"`
	Storage     StorageConfig     `toml:"storage"`
	Fixtures    FixturesConfig    `toml:"fixtures"`
}

// EnvironmentConfig locates the application under test
type EnvironmentConfig struct {
	BaseURL     string `toml:"base_url" validate:"omitempty,url"` // Empty disables live browser runs
	ProfilePath string `toml:"profile_path"`                      // Page hosting the grids, relative to base_url
}

// LoginConfig drives the sign-in step performed at the start of every session
type LoginConfig struct {
	Enabled       bool               `toml:"enabled"`
	Email         string             `toml:"email" validate:"required_if=Enabled true"`
	Password      string             `toml:"password" validate:"required_if=Enabled true"`
	SignIn        interfaces.Locator `toml:"sign_in"`
	EmailInput    interfaces.Locator `toml:"email_input"`
	PasswordInput interfaces.Locator `toml:"password_input"`
	Submit        interfaces.Locator `toml:"submit"`
	LoggedIn      interfaces.Locator `toml:"logged_in"` // Visible once the session is authenticated
}

// BrowserConfig controls the chromedp session
type BrowserConfig struct {
	Headless       bool   `toml:"headless"`
	WindowWidth    int    `toml:"window_width" validate:"gt=0"`
	WindowHeight   int    `toml:"window_height" validate:"gt=0"`
	CommandTimeout string `toml:"command_timeout" validate:"duration"` // Bound on a single CDP round trip
	UserAgent      string `toml:"user_agent"`
	ExecPath       string `toml:"exec_path"` // Chrome binary; empty uses chromedp's lookup
	ScreenshotDir  string `toml:"screenshot_dir"`
}

// WaitsConfig holds every wait budget. There are no implicit waits.
type WaitsConfig struct {
	PollInterval       string `toml:"poll_interval" validate:"duration"`
	DefaultTimeout     string `toml:"default_timeout" validate:"duration"`      // Controls becoming visible
	ToastTimeout       string `toml:"toast_timeout" validate:"duration"`        // Notifications appearing
	AlertTimeout       string `toml:"alert_timeout" validate:"duration"`        // Native dialog probes
	StrayTimeout       string `toml:"stray_timeout" validate:"duration"`        // Dialog check at session boundaries; 0 checks once
	SettleTimeout      string `toml:"settle_timeout" validate:"duration"`       // Snapshot re-render races
	DrainShrinkTimeout string `toml:"drain_shrink_timeout" validate:"duration"` // Per drain iteration
	DrainMaxSkips      int    `toml:"drain_max_skips" validate:"gte=0"`
	TestTimeout        string `toml:"test_timeout" validate:"duration"` // Deadline of one harness session
}

// ToastConfig locates the notification elements
type ToastConfig struct {
	Success interfaces.Locator `toml:"success"`
	Error   interfaces.Locator `toml:"error"`
	Close   interfaces.Locator `toml:"close"`
	All     interfaces.Locator `toml:"all"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`                                             // "stdout", "file"
	TimeFormat string   `toml:"time_format"`
	Dir        string   `toml:"dir"` // Log file directory; empty uses ./logs next to the executable
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents the run ledger database
type BadgerConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path" validate:"required_if=Enabled true"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete the ledger on startup for clean runs
}

type FixturesConfig struct {
	Dir string `toml:"dir"`
}

// NewDefaultConfig returns the configuration used when no file overrides it
func NewDefaultConfig() *Config {
	return &Config{
		Environment: EnvironmentConfig{
			ProfilePath: "/Account/Profile",
		},
		Login: LoginConfig{
			SignIn:        interfaces.CSS("a.item").WithText("Sign In"),
			EmailInput:    interfaces.CSS("input[name='email']"),
			PasswordInput: interfaces.CSS("input[name='password']"),
			Submit:        interfaces.CSS("button.ui.button").WithText("Login"),
			LoggedIn:      interfaces.CSS("div.ui.top.attached.tabular.menu"),
		},
		Browser: BrowserConfig{
			Headless:       true,
			WindowWidth:    1920,
			WindowHeight:   1080,
			CommandTimeout: "15s",
			ScreenshotDir:  "./screenshots",
		},
		Waits: WaitsConfig{
			PollInterval:       "250ms",
			DefaultTimeout:     "5s",
			ToastTimeout:       "10s",
			AlertTimeout:       "2s",
			StrayTimeout:       "0s",
			SettleTimeout:      "2s",
			DrainShrinkTimeout: "5s",
			DrainMaxSkips:      5,
			TestTimeout:        "3m",
		},
		Toast: ToastConfig{
			Success: interfaces.CSS("div.ns-box.ns-type-success .ns-box-inner"),
			Error:   interfaces.CSS("div.ns-box.ns-type-error .ns-box-inner"),
			Close:   interfaces.CSS("a.ns-close"),
			All:     interfaces.CSS("div.ns-box-inner"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Enabled: true,
				Path:    "./data/runs",
			},
		},
		Fixtures: FixturesConfig{
			Dir: "./testdata",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. Flag overrides are applied by the caller afterwards.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := ReplaceInStruct(config, environmentMap(), GetLogger()); err != nil {
		return nil, fmt.Errorf("failed to resolve config references: %w", err)
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides applies GRIDCHECK_* environment variable overrides
func applyEnvOverrides(config *Config) {
	// Environment
	if baseURL := os.Getenv("GRIDCHECK_BASE_URL"); baseURL != "" {
		config.Environment.BaseURL = baseURL
	}
	if profilePath := os.Getenv("GRIDCHECK_PROFILE_PATH"); profilePath != "" {
		config.Environment.ProfilePath = profilePath
	}

	// Login
	if email := os.Getenv("GRIDCHECK_LOGIN_EMAIL"); email != "" {
		config.Login.Email = email
	}
	if password := os.Getenv("GRIDCHECK_LOGIN_PASSWORD"); password != "" {
		config.Login.Password = password
	}
	if enabled := os.Getenv("GRIDCHECK_LOGIN_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Login.Enabled = e
		}
	}

	// Browser
	if headless := os.Getenv("GRIDCHECK_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if execPath := os.Getenv("GRIDCHECK_CHROME_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}

	// Waits
	if interval := os.Getenv("GRIDCHECK_POLL_INTERVAL"); interval != "" {
		config.Waits.PollInterval = interval
	}
	if timeout := os.Getenv("GRIDCHECK_TOAST_TIMEOUT"); timeout != "" {
		config.Waits.ToastTimeout = timeout
	}

	// Storage
	if badgerPath := os.Getenv("GRIDCHECK_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging
	if level := os.Getenv("GRIDCHECK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("GRIDCHECK_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Fixtures
	if dir := os.Getenv("GRIDCHECK_FIXTURES_DIR"); dir != "" {
		config.Fixtures.Dir = dir
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, baseURL string, headless *bool) {
	if baseURL != "" {
		config.Environment.BaseURL = baseURL
	}
	if headless != nil {
		config.Browser.Headless = *headless
	}
}

// Validate checks struct tags and duration fields
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	}); err != nil {
		return fmt.Errorf("failed to register duration validation: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// HasLiveTarget reports whether a base URL is configured for live runs
func (c *Config) HasLiveTarget() bool {
	return c.Environment.BaseURL != ""
}

// ProfileURL joins the base URL and profile path
func (c *Config) ProfileURL() (string, error) {
	base, err := url.Parse(c.Environment.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base_url %q: %w", c.Environment.BaseURL, err)
	}
	return base.JoinPath(c.Environment.ProfilePath).String(), nil
}

// MustDuration parses a validated duration string. Invalid values yield
// fallback so a config that skipped Validate still runs.
func MustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// DeepCloneConfig creates a deep copy of the Config struct
func DeepCloneConfig(c *Config) *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if len(c.Logging.Output) > 0 {
		clone.Logging.Output = make([]string, len(c.Logging.Output))
		copy(clone.Logging.Output, c.Logging.Output)
	}
	return &clone
}

func environmentMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
