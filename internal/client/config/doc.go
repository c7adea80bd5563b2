// Package config loads runtime configuration for the applytrack CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and APPLYTRACK_* environment
//     variables (see parseEnv). Variables already set win over .env.
//  3. Optional JSON file (see parseJSON) selected via -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   API base URL (default http://localhost:5000/api)
//	-d string   local SQLite database path
//	-t int      request timeout (seconds)
//	-l string   log level
//	-o string   download directory
//
// # Environment
//
//	APPLYTRACK_API_URL, APPLYTRACK_DB_PATH, APPLYTRACK_REQUEST_TIMEOUT,
//	APPLYTRACK_UPLOAD_TIMEOUT, APPLYTRACK_POLL_ATTEMPTS, APPLYTRACK_POLL_DELAY,
//	APPLYTRACK_RATE_LIMIT, APPLYTRACK_LOG_LEVEL, APPLYTRACK_DOWNLOAD_DIR
//
// # JSON schema
//
// Durations may be strings like "300ms" or integer nanoseconds:
//
//	{
//	  "server_base_url": "https://api.example.com/api",
//	  "request_timeout": "30s",
//	  "poll_attempts": 6,
//	  "poll_delay": "300ms"
//	}
package config
