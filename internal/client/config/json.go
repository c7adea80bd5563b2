package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/applytrack/internal/flagx"
	"github.com/dmitrijs2005/applytrack/internal/timex"
)

// JsonConfig is the DTO for the JSON file. Durations use timex.Duration so
// they can be written as "300ms" or as integer nanoseconds. Absent fields
// keep their earlier value.
type JsonConfig struct {
	ServerBaseURL  string          `json:"server_base_url"`
	StoragePath    string          `json:"storage_path"`
	RequestTimeout *timex.Duration `json:"request_timeout"`
	UploadTimeout  *timex.Duration `json:"upload_timeout"`
	PollAttempts   *int            `json:"poll_attempts"`
	PollDelay      *timex.Duration `json:"poll_delay"`
	RateLimit      *float64        `json:"rate_limit"`
	LogLevel       string          `json:"log_level"`
	DownloadDir    string          `json:"download_dir"`
}

// parseJSON overlays cfg with the file named by -c or -config in args.
// Without such a flag it does nothing.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setString(&cfg.StoragePath, jc.StoragePath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.DownloadDir, jc.DownloadDir)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.UploadTimeout != nil {
		cfg.UploadTimeout = jc.UploadTimeout.Duration
	}
	if jc.PollAttempts != nil {
		cfg.PollAttempts = *jc.PollAttempts
	}
	if jc.PollDelay != nil {
		cfg.PollDelay = jc.PollDelay.Duration
	}
	if jc.RateLimit != nil {
		cfg.RateLimit = *jc.RateLimit
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
