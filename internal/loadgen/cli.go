package loadgen

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/mingle/pkg/logger"
)

// SetupLogging logs to stdout and, when logFile is set, to that file too.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}
	if err := logger.InitWith(w, logger.FormatText); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Mingle Load Generator
=====================

Creates respondents for one event, submits their surveys concurrently and
verifies every response against the stored match grids.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -event string
        Event ID to submit to (default: a fresh load-<uuid>)
  -users int
        Number of respondents (default 200)
  -questions int
        Questions per survey (default 6)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -secret string
        JWT secret shared with the service (default $MINGLE_JWT_SECRET or the development secret)
  -issuer string
        JWT issuer expected by the service (default $MINGLE_JWT_ISSUER or "mingle")
  -top int
        Grid size the service keeps (default 3)
  -output string
        Write generated respondents to this JSON file
  -log string
        Also write logs to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -users 1000 -workers 32
  go run ./cmd/loadgen -url http://localhost:8080 -secret "$MINGLE_JWT_SECRET" -verbose
`)
}
