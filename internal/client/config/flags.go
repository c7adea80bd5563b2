package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/applytrack/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
//	-a string   API base URL
//	-d string   local database path
//	-t int      request timeout in seconds
//	-l string   log level (debug, info, warn, error)
//	-o string   download directory
//
// Only these flags are read from args; anything else is left for other
// parsers.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-t", "-l", "-o"})

	fs := flag.NewFlagSet("applytrack", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "API base URL")
	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "local database path")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	return nil
}
