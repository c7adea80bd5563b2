package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds runtime settings for the applytrack CLI.
type Config struct {
	ServerBaseURL  string        `env:"API_URL"`
	StoragePath    string        `env:"DB_PATH"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	UploadTimeout  time.Duration `env:"UPLOAD_TIMEOUT"`
	PollAttempts   int           `env:"POLL_ATTEMPTS"`
	PollDelay      time.Duration `env:"POLL_DELAY"`
	// RateLimit caps outbound requests per second; 0 disables it.
	RateLimit   float64 `env:"RATE_LIMIT"`
	LogLevel    string  `env:"LOG_LEVEL"`
	DownloadDir string  `env:"DOWNLOAD_DIR"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:5000/api"
	c.StoragePath = "applytrack.db"
	c.RequestTimeout = 30 * time.Second
	c.UploadTimeout = 60 * time.Second
	c.PollAttempts = 6
	c.PollDelay = 300 * time.Millisecond
	c.RateLimit = 0
	c.LogLevel = "warn"
	c.DownloadDir = "."
}

func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("server base url %q must be an absolute http(s) url", c.ServerBaseURL))
	}
	if c.StoragePath == "" {
		errs = append(errs, errors.New("storage path is required"))
	}
	if c.RequestTimeout <= 0 || c.UploadTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.PollAttempts < 1 {
		errs = append(errs, errors.New("poll attempts must be at least 1"))
	}
	if c.PollDelay < 0 {
		errs = append(errs, errors.New("poll delay must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

// Load builds a Config from defaults, then a .env file and APPLYTRACK_*
// environment variables, then the JSON file named by -c/-config, then
// command-line flags. Later sources take precedence.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
