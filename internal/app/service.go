// Package service hosts the matchmaking engine: it ingests survey
// submissions, builds the candidate pool, ranks candidates and writes the
// caller's match grid.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	repository "github.com/okian/mingle/internal/adapters/repository"
	"github.com/okian/mingle/internal/auth"
	"github.com/okian/mingle/internal/domain/model"
	"github.com/okian/mingle/internal/domain/ranking"
	"github.com/okian/mingle/internal/domain/scoring"
	"github.com/okian/mingle/internal/domain/types"
	"github.com/okian/mingle/internal/validation"
	"github.com/okian/mingle/pkg/logger"
	"github.com/okian/mingle/pkg/metrics"
)

// Service implements the API dependencies for matchmaking.
type Service struct {
	mu sync.RWMutex

	// Core components
	backend repository.Backend
	scorer  scoring.Scorer
	ranker  *ranking.Ranker

	// Configuration
	topK              int
	lookupConcurrency int
	requestTimeout    time.Duration
	now               func() time.Time

	logger    logger.Logger
	started   bool
	startedAt time.Time

	// Counters
	submissions atomic.Int64
	runs        atomic.Int64
	successes   atomic.Int64
	noMatches   atomic.Int64
	failures    atomic.Int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBackend sets the store used for submissions, profiles and grids.
func WithBackend(b repository.Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

// WithLogger sets the logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithScorer sets the compatibility scorer.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithTopK sets how many matches a grid keeps, at most ranking.MaxTopK.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 && k <= ranking.MaxTopK {
			s.topK = k
		}
	}
}

// WithLookupConcurrency bounds parallel interest lookups within one run.
func WithLookupConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.lookupConcurrency = n
		}
	}
}

// WithRequestTimeout bounds a single matching run. Zero means no bound
// beyond the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.requestTimeout = d
		}
	}
}

// WithClock overrides the time source used for server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new service with the given options.
func New(opts ...Option) *Service {
	s := &Service{
		topK:              ranking.DefaultTopK,
		lookupConcurrency: runtime.NumCPU() * 4,
		requestTimeout:    10 * time.Second,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.backend == nil {
		s.backend = repository.NewMemoryStore()
		s.logger.Info(ctx, "no backend configured, using memory store")
	}
	if s.scorer == nil {
		s.scorer = scoring.NewCompatibilityScorer()
	}
	s.ranker = ranking.New(ranking.WithScorer(s.scorer), ranking.WithTopK(s.topK))

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "matchmaking service started",
		logger.Int("topK", s.topK),
		logger.Int("lookupConcurrency", s.lookupConcurrency),
		logger.Duration("requestTimeout", s.requestTimeout),
	)

	return nil
}

// Stop closes the backend.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping matchmaking service...")
	if err := s.backend.Close(); err != nil {
		s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "matchmaking service stopped")
}

// components returns the started backend and ranker.
func (s *Service) components(op string) (repository.Backend, *ranking.Ranker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, newError(op, ErrInternal, errNotStarted)
	}
	return s.backend, s.ranker, nil
}

// caller returns the authenticated user of ctx.
func caller(ctx context.Context, op string) (string, error) {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return "", newError(op, ErrUnauthenticated, nil)
	}
	return userID, nil
}

// validateSubmission checks eventID and answers without touching any store.
func validateSubmission(op, eventID string, answers []model.Answer) error {
	req := types.MatchmakingRequest{EventID: eventID, Answers: answers}
	if err := validation.Struct(&req); err != nil {
		return newError(op, ErrInvalidArgument, err)
	}
	return nil
}

// Submit stores or replaces userID's submission for eventID with a fresh
// server timestamp. No scoring happens here.
func (s *Service) Submit(ctx context.Context, userID, eventID string, answers []model.Answer) error {
	const op = "submit"
	if userID == "" {
		return newError(op, ErrUnauthenticated, nil)
	}
	if err := validateSubmission(op, eventID, answers); err != nil {
		return err
	}
	backend, _, err := s.components(op)
	if err != nil {
		return err
	}

	sub := model.SurveySubmission{
		UserID:      userID,
		EventID:     eventID,
		Answers:     answers,
		SubmittedAt: s.now().UTC(),
	}
	if err := backend.PutSubmission(ctx, sub); err != nil {
		return newError(op, ErrInternal, err)
	}

	s.submissions.Add(1)
	metrics.RecordSurveySubmitted()
	return nil
}

// ListOtherSubmitters returns every other submitter of eventID with their
// interests resolved. Interest lookups run concurrently and all finish
// before the pool is returned. An empty pool is not an error.
func (s *Service) ListOtherSubmitters(ctx context.Context, eventID, excludingUserID string) ([]model.UserSurveyData, error) {
	const op = "list other submitters"
	backend, _, err := s.components(op)
	if err != nil {
		return nil, err
	}

	subs, err := backend.ListByEvent(ctx, eventID, excludingUserID)
	if err != nil {
		return nil, newError(op, ErrInternal, err)
	}

	pool := make([]model.UserSurveyData, len(subs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.lookupConcurrency)
	for i, sub := range subs {
		g.Go(func() error {
			start := time.Now()
			interests, err := backend.GetUserInterests(gctx, sub.UserID)
			metrics.RecordInterestLookupLatency(float64(time.Since(start).Microseconds()) / 1000.0)
			if err != nil {
				return fmt.Errorf("interests of %s: %w", sub.UserID, err)
			}
			pool[i] = model.UserSurveyData{
				UserID:    sub.UserID,
				Interests: interests,
				Answers:   sub.Answers,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, newError(op, ErrInternal, err)
	}

	metrics.RecordCandidatePoolSize(len(pool))
	return pool, nil
}

// WriteGrid replaces userID's grid for eventID. Writing the same matches
// twice leaves the same stored grid apart from its timestamp.
func (s *Service) WriteGrid(ctx context.Context, userID, eventID string, matches []model.Match) error {
	const op = "write grid"
	backend, _, err := s.components(op)
	if err != nil {
		return err
	}

	if matches == nil {
		matches = []model.Match{}
	}
	grid := model.MatchGrid{
		UserID:    userID,
		EventID:   eventID,
		Matches:   matches,
		UpdatedAt: s.now().UTC(),
	}
	if err := backend.PutGrid(ctx, grid); err != nil {
		return newError(op, ErrInternal, err)
	}
	metrics.RecordGridWrite(len(matches))
	return nil
}

// ProcessSurveyAndFindMatches runs one matchmaking pass for the caller:
// submit, resolve the caller's interests, build the candidate pool, rank
// and write the grid. Nothing is retried; a failure after the submission
// was stored leaves the previous grid in place.
func (s *Service) ProcessSurveyAndFindMatches(ctx context.Context, eventID string, answers []model.Answer) (types.MatchmakingResult, error) {
	const op = "process survey"
	start := time.Now()

	userID, err := caller(ctx, op)
	if err != nil {
		return types.MatchmakingResult{}, err
	}
	if err := validateSubmission(op, eventID, answers); err != nil {
		return types.MatchmakingResult{}, err
	}
	if _, _, err := s.components(op); err != nil {
		return types.MatchmakingResult{}, err
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	log := s.log().With(
		logger.String("runID", uuid.NewString()),
		logger.String("eventID", eventID),
		logger.String("userID", userID),
	)

	res, candidates, err := s.match(ctx, userID, eventID, answers)
	elapsed := time.Since(start)
	s.runs.Add(1)
	if err != nil {
		s.failures.Add(1)
		metrics.RecordMatchingRun("error", float64(elapsed.Microseconds())/1000.0)
		log.Error(ctx, "matching run failed", logger.Error(err), logger.Duration("elapsed", elapsed))
		return types.MatchmakingResult{}, err
	}

	if res.Status == types.StatusSuccess {
		s.successes.Add(1)
	} else {
		s.noMatches.Add(1)
	}
	metrics.RecordMatchingRun(string(res.Status), float64(elapsed.Microseconds())/1000.0)
	log.Info(ctx, "matching run finished",
		logger.Int("candidates", candidates),
		logger.Int("matches", len(res.Matches)),
		logger.String("status", string(res.Status)),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (s *Service) match(ctx context.Context, userID, eventID string, answers []model.Answer) (types.MatchmakingResult, int, error) {
	const op = "process survey"

	if err := s.Submit(ctx, userID, eventID, answers); err != nil {
		return types.MatchmakingResult{}, 0, err
	}

	backend, ranker, err := s.components(op)
	if err != nil {
		return types.MatchmakingResult{}, 0, err
	}
	interests, err := backend.GetUserInterests(ctx, userID)
	if err != nil {
		return types.MatchmakingResult{}, 0, newError(op, ErrInternal, fmt.Errorf("own interests: %w", err))
	}

	candidates, err := s.ListOtherSubmitters(ctx, eventID, userID)
	if err != nil {
		return types.MatchmakingResult{}, 0, err
	}

	if len(candidates) == 0 {
		if err := s.WriteGrid(ctx, userID, eventID, nil); err != nil {
			return types.MatchmakingResult{}, 0, err
		}
		return types.MatchmakingResult{
			Status:  types.StatusNoMatches,
			Message: types.MessageNoMatches,
		}, 0, nil
	}

	current := model.UserSurveyData{UserID: userID, Interests: interests, Answers: answers}
	matches := ranker.Rank(current, candidates)

	if err := s.WriteGrid(ctx, userID, eventID, matches); err != nil {
		return types.MatchmakingResult{}, len(candidates), err
	}
	return types.MatchmakingResult{
		Status:  types.StatusSuccess,
		Message: types.MessageSuccess,
		Matches: types.Entries(matches),
	}, len(candidates), nil
}

// Grid returns the caller's stored grid for eventID.
func (s *Service) Grid(ctx context.Context, eventID string) (types.GridResponse, error) {
	const op = "get grid"
	userID, err := caller(ctx, op)
	if err != nil {
		return types.GridResponse{}, err
	}
	if eventID == "" {
		return types.GridResponse{}, newError(op, ErrInvalidArgument, errors.New("eventId is required"))
	}
	backend, _, err := s.components(op)
	if err != nil {
		return types.GridResponse{}, err
	}

	g, err := backend.GetGrid(ctx, userID, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return types.GridResponse{}, newError(op, ErrNotFound, err)
	}
	if err != nil {
		return types.GridResponse{}, newError(op, ErrInternal, err)
	}
	return types.NewGridResponse(g), nil
}

// PutInterests replaces the caller's interest labels.
func (s *Service) PutInterests(ctx context.Context, interests []string) error {
	const op = "put interests"
	userID, err := caller(ctx, op)
	if err != nil {
		return err
	}
	if err := validation.Struct(&types.InterestsRequest{Interests: interests}); err != nil {
		return newError(op, ErrInvalidArgument, err)
	}
	backend, _, err := s.components(op)
	if err != nil {
		return err
	}
	if err := backend.PutInterests(ctx, userID, interests); err != nil {
		return newError(op, ErrInternal, err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"topK":              s.topK,
		"lookupConcurrency": s.lookupConcurrency,
		"submissions":       s.submissions.Load(),
		"runs":              s.runs.Load(),
		"successes":         s.successes.Load(),
		"noMatches":         s.noMatches.Load(),
		"failures":          s.failures.Load(),
	}
	if s.started {
		stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
	}
	return stats
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Get()
	}
	return s.logger
}
