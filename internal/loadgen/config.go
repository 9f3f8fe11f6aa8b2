package loadgen

import (
	"time"

	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/internal/domain/types"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	EventID    string        // Event every respondent submits to; generated when empty
	Users      int           // Number of respondents
	Questions  int           // Questions per survey
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	JWTSecret  string        // Secret shared with the service
	JWTIssuer  string        // Issuer the service expects, if any
	TopK       int           // Grid size the service is configured with
	OutputFile string        // Output file for generated respondents
	Verbose    bool          // Enable verbose logging
}

// Respondent is one generated attendee.
type Respondent struct {
	UserID    string         `json:"userId"`
	Interests []string       `json:"interests"`
	Answers   []model.Answer `json:"answers"`
}

// outcome is what one submission returned.
type outcome struct {
	status int
	result types.MatchmakingResult
}

// Stats holds run statistics.
type Stats struct {
	Respondents   int
	InterestsSet  int
	Submitted     int
	Successful    int
	NoMatches     int
	Failed        int
	Invalid       int
	GridsVerified int
	P50Latency    time.Duration
	P95Latency    time.Duration
	P99Latency    time.Duration
	MaxLatency    time.Duration
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
