// Package loadgen drives a running matchmaking service end to end: it
// creates respondents for one event, submits their surveys concurrently and
// checks every response against the stored grids.
package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okian/mingle/internal/domain/ranking"
	"github.com/okian/mingle/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

const percentageMultiplier = 100

// Run executes the complete load run and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	applyDefaults(cfg)
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting mingle load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("eventID", cfg.EventID),
		logger.Int("users", cfg.Users),
		logger.Int("questions", cfg.Questions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c, err := newClient(cfg)
	if err != nil {
		return stats, err
	}

	if err := checkServiceHealth(ctx, c); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	respondents, err := generateRespondents(ctx, cfg, stats)
	if err != nil {
		return stats, fmt.Errorf("generation failed: %w", err)
	}

	setInterests(ctx, cfg, c, respondents, stats)
	outcomes := submitSurveys(ctx, cfg, c, respondents, stats)
	verifyErr := verifyOutcomes(ctx, cfg, c, respondents, outcomes, stats)

	if cfg.OutputFile != "" {
		if err := saveRespondents(ctx, cfg.OutputFile, respondents); err != nil {
			logger.Get().Warn(ctx, "failed to save respondents", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if verifyErr != nil {
		return stats, verifyErr
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	logger.Get().Info(ctx, "load run completed successfully")
	return stats, nil
}

func applyDefaults(cfg *Config) {
	if cfg.EventID == "" {
		cfg.EventID = "load-" + uuid.NewString()
	}
	if cfg.Users <= 0 {
		cfg.Users = 1
	}
	if cfg.Questions <= 0 {
		cfg.Questions = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TopK <= 0 {
		cfg.TopK = ranking.DefaultTopK
	}
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, c *client) error {
	status, _, err := c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", status)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveRespondents writes the generated respondents as a JSON array.
func saveRespondents(ctx context.Context, filename string, respondents []Respondent) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(respondents, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal respondents: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "respondents saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, perSecond float64
	if stats.Submitted > 0 {
		successRate = float64(stats.Submitted-stats.Failed) / float64(stats.Submitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("respondents", stats.Respondents),
		logger.Int("interestsSet", stats.InterestsSet),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("noMatches", stats.NoMatches),
		logger.Int("failed", stats.Failed),
		logger.Int("invalid", stats.Invalid),
		logger.Int("gridsVerified", stats.GridsVerified),
		logger.Duration("p50", stats.P50Latency),
		logger.Duration("p95", stats.P95Latency),
		logger.Duration("p99", stats.P99Latency),
		logger.Duration("max", stats.MaxLatency),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("submissionsPerSecond", perSecond))
}
