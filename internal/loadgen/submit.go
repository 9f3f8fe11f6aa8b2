package loadgen

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/okian/mingle/internal/domain/types"
	"github.com/okian/mingle/pkg/logger"
)

// Latency histogram bounds in microseconds: 1µs to 60s, 3 significant figures.
const (
	minLatencyMicros = 1
	maxLatencyMicros = 60_000_000
	latencySigFigs   = 3
)

// latencies is a concurrency-safe HDR histogram.
type latencies struct {
	mu sync.Mutex
	h  *hdrhistogram.Histogram
}

func newLatencies() *latencies {
	return &latencies{h: hdrhistogram.New(minLatencyMicros, maxLatencyMicros, latencySigFigs)}
}

func (l *latencies) record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.h.RecordValue(d.Microseconds())
}

func (l *latencies) quantile(q float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(l.h.ValueAtQuantile(q)) * time.Microsecond
}

func (l *latencies) max() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Duration(l.h.Max()) * time.Microsecond
}

// forEach runs fn for every index in [0, n) on cfg.Workers goroutines.
func forEach(ctx context.Context, workers, n int, fn func(i int)) {
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(i)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()
}

// setInterests stores every respondent's interests before anyone submits.
func setInterests(ctx context.Context, cfg *Config, c *client, respondents []Respondent, stats *Stats) {
	var ok atomic.Int64
	forEach(ctx, cfg.Workers, len(respondents), func(i int) {
		r := respondents[i]
		body := types.InterestsRequest{Interests: r.Interests}
		status, _, err := c.do(ctx, http.MethodPut, "/v1/profile/interests", r.UserID, body, nil)
		if err != nil || status != http.StatusNoContent {
			logger.Get().Warn(ctx, "failed to set interests",
				logger.String("userID", r.UserID), logger.Int("status", status), logger.Error(err))
			return
		}
		ok.Add(1)
	})
	stats.InterestsSet = int(ok.Load())
}

// submitSurveys submits every respondent's survey concurrently and returns
// each outcome by respondent index.
func submitSurveys(ctx context.Context, cfg *Config, c *client, respondents []Respondent, stats *Stats) []outcome {
	logger.Get().Info(ctx, "submitting surveys",
		logger.Int("respondents", len(respondents)), logger.Int("workers", cfg.Workers))

	outcomes := make([]outcome, len(respondents))
	lat := newLatencies()
	var submitted, successful, noMatches, failed atomic.Int64

	forEach(ctx, cfg.Workers, len(respondents), func(i int) {
		r := respondents[i]
		req := types.MatchmakingRequest{EventID: cfg.EventID, Answers: r.Answers}

		var res types.MatchmakingResult
		status, elapsed, err := c.do(ctx, http.MethodPost, "/v1/matchmaking", r.UserID, req, &res)
		submitted.Add(1)
		lat.record(elapsed)
		outcomes[i] = outcome{status: status, result: res}

		switch {
		case err != nil || status != http.StatusOK:
			failed.Add(1)
			if cfg.Verbose {
				logger.Get().Warn(ctx, "submission failed",
					logger.String("userID", r.UserID), logger.Int("status", status), logger.Error(err))
			}
		case res.Status == types.StatusNoMatches:
			noMatches.Add(1)
		default:
			successful.Add(1)
		}
	})

	stats.Submitted = int(submitted.Load())
	stats.Successful = int(successful.Load())
	stats.NoMatches = int(noMatches.Load())
	stats.Failed = int(failed.Load())
	stats.P50Latency = lat.quantile(50)
	stats.P95Latency = lat.quantile(95)
	stats.P99Latency = lat.quantile(99)
	stats.MaxLatency = lat.max()
	return outcomes
}
