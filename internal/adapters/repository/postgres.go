package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/mingle/internal/domain/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS survey_submissions (
	event_id     TEXT        NOT NULL,
	user_id      TEXT        NOT NULL,
	answers      JSONB       NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (event_id, user_id)
);
CREATE INDEX IF NOT EXISTS survey_submissions_event_time
	ON survey_submissions (event_id, submitted_at, user_id);
CREATE TABLE IF NOT EXISTS user_profiles (
	user_id   TEXT  PRIMARY KEY,
	interests JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS match_grids (
	user_id    TEXT        NOT NULL,
	event_id   TEXT        NOT NULL,
	matches    JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, event_id)
);`

// PostgresStore is a Backend on PostgreSQL. Answers, interests and matches
// are stored as JSONB documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgresStore connects to dsn and creates the tables if needed.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// PutSubmission implements SubmissionStore.
func (p *PostgresStore) PutSubmission(ctx context.Context, s model.SurveySubmission) error {
	answers, err := json.Marshal(toAnswerRecords(s.Answers))
	if err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO survey_submissions (event_id, user_id, answers, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id)
		DO UPDATE SET answers = EXCLUDED.answers, submitted_at = EXCLUDED.submitted_at`,
		s.EventID, s.UserID, answers, s.SubmittedAt.UTC())
	if err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	return nil
}

// ListByEvent implements SubmissionStore.
func (p *PostgresStore) ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, answers, submitted_at
		FROM survey_submissions
		WHERE event_id = $1 AND user_id <> $2
		ORDER BY submitted_at, user_id`,
		eventID, excludingUserID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := []model.SurveySubmission{}
	for rows.Next() {
		var (
			userID string
			raw    []byte
			at     time.Time
		)
		if err := rows.Scan(&userID, &raw, &at); err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		sub, err := decodeSubmissionRow(eventID, userID, raw, at)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

// GetUserInterests implements InterestLookup.
func (p *PostgresStore) GetUserInterests(ctx context.Context, userID string) ([]string, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT interests FROM user_profiles WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interests: %w", err)
	}
	return decodeInterests(raw)
}

// PutInterests implements ProfileStore.
func (p *PostgresStore) PutInterests(ctx context.Context, userID string, interests []string) error {
	raw, err := json.Marshal(interestsOrEmpty(interests))
	if err != nil {
		return fmt.Errorf("put interests: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, interests) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET interests = EXCLUDED.interests`,
		userID, raw)
	if err != nil {
		return fmt.Errorf("put interests: %w", err)
	}
	return nil
}

// PutGrid implements GridStore.
func (p *PostgresStore) PutGrid(ctx context.Context, g model.MatchGrid) error {
	matches, err := json.Marshal(toMatchRecords(g.Matches))
	if err != nil {
		return fmt.Errorf("put grid: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO match_grids (user_id, event_id, matches, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, event_id)
		DO UPDATE SET matches = EXCLUDED.matches, updated_at = EXCLUDED.updated_at`,
		g.UserID, g.EventID, matches, g.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put grid: %w", err)
	}
	return nil
}

// GetGrid implements GridStore.
func (p *PostgresStore) GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error) {
	var (
		raw []byte
		at  time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT matches, updated_at FROM match_grids WHERE user_id = $1 AND event_id = $2`,
		userID, eventID).Scan(&raw, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", ErrNotFound)
	}
	if err != nil {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", err)
	}
	return decodeGridRow(userID, eventID, raw, at)
}

// Close implements Backend.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// decodeSubmissionRow builds a submission from a SQL row with JSON answers.
func decodeSubmissionRow(eventID, userID string, raw []byte, at time.Time) (model.SurveySubmission, error) {
	rec := submissionRecord{EventID: eventID, UserID: userID, SubmittedAt: at}
	if err := json.Unmarshal(raw, &rec.Answers); err != nil {
		return model.SurveySubmission{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return rec.model()
}

// decodeGridRow builds a grid from a SQL row with JSON matches.
func decodeGridRow(userID, eventID string, raw []byte, at time.Time) (model.MatchGrid, error) {
	rec := gridRecord{UserID: userID, EventID: eventID, UpdatedAt: at}
	if err := json.Unmarshal(raw, &rec.Matches); err != nil {
		return model.MatchGrid{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return rec.model(), nil
}

func decodeInterests(raw []byte) ([]string, error) {
	var interests []string
	if err := json.Unmarshal(raw, &interests); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return interestsOrEmpty(interests), nil
}
