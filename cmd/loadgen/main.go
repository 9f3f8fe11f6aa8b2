package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/mingle/internal/config"
	"github.com/okian/mingle/internal/loadgen"
)

// Default configuration constants.
const (
	defaultUsers     = 200
	defaultQuestions = 6
	defaultTopK      = 3
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		eventID   = flag.String("event", "", "Event ID to submit to (default: a fresh load-<uuid>)")
		users     = flag.Int("users", defaultUsers, "Number of respondents")
		questions = flag.Int("questions", defaultQuestions, "Questions per survey")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		secret    = flag.String("secret", envOr("MINGLE_JWT_SECRET", config.DevJWTSecret), "JWT secret shared with the service")
		issuer    = flag.String("issuer", envOr("MINGLE_JWT_ISSUER", "mingle"), "JWT issuer expected by the service")
		topK      = flag.Int("top", defaultTopK, "Grid size the service keeps")
		output    = flag.String("output", "", "Write generated respondents to this JSON file")
		logFile   = flag.String("log", "", "Also write logs to this file")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := loadgen.SetupLogging(*logFile, *verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunLimit)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:    *baseURL,
		EventID:    *eventID,
		Users:      *users,
		Questions:  *questions,
		Workers:    *workers,
		Timeout:    *timeout,
		JWTSecret:  *secret,
		JWTIssuer:  *issuer,
		TopK:       *topK,
		OutputFile: *output,
		Verbose:    *verbose,
	}

	if _, err := loadgen.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
