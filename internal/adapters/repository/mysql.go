package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/goccy/go-json"

	"github.com/okian/mingle/internal/domain/model"
)

// Identifier columns are binary so keys compare byte for byte, not by collation.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS survey_submissions (
		event_id     VARBINARY(128) NOT NULL,
		user_id      VARBINARY(128) NOT NULL,
		answers      JSON           NOT NULL,
		submitted_at DATETIME(6)    NOT NULL,
		PRIMARY KEY (event_id, user_id),
		KEY survey_submissions_event_time (event_id, submitted_at, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id   VARBINARY(128) NOT NULL PRIMARY KEY,
		interests JSON           NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_grids (
		user_id    VARBINARY(128) NOT NULL,
		event_id   VARBINARY(128) NOT NULL,
		matches    JSON           NOT NULL,
		updated_at DATETIME(6)    NOT NULL,
		PRIMARY KEY (user_id, event_id)
	)`,
}

// MySQLStore is a Backend on MySQL using JSON columns. Documents are sent as
// text because JSON columns reject binary strings.
type MySQLStore struct {
	db *sql.DB
}

// mysqlConfig parses dsn and forces the settings the store relies on.
func mysqlConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg, nil
}

// OpenMySQLStore connects to dsn and creates the tables if needed.
func OpenMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate mysql: %w", err)
		}
	}
	return &MySQLStore{db: db}, nil
}

// PutSubmission implements SubmissionStore.
func (m *MySQLStore) PutSubmission(ctx context.Context, s model.SurveySubmission) error {
	answers, err := json.Marshal(toAnswerRecords(s.Answers))
	if err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO survey_submissions (event_id, user_id, answers, submitted_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE answers = VALUES(answers), submitted_at = VALUES(submitted_at)`,
		s.EventID, s.UserID, string(answers), s.SubmittedAt.UTC())
	if err != nil {
		return fmt.Errorf("put submission: %w", err)
	}
	return nil
}

// ListByEvent implements SubmissionStore.
func (m *MySQLStore) ListByEvent(ctx context.Context, eventID, excludingUserID string) ([]model.SurveySubmission, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT user_id, answers, submitted_at
		FROM survey_submissions
		WHERE event_id = ? AND user_id <> ?
		ORDER BY submitted_at, user_id`,
		eventID, excludingUserID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
func (m *MySQLStore) GetUserInterests(ctx context.Context, userID string) ([]string, error) {
	var raw []byte
	err := m.db.QueryRowContext(ctx, `SELECT interests FROM user_profiles WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interests: %w", err)
	}
	return decodeInterests(raw)
}

// PutInterests implements ProfileStore.
func (m *MySQLStore) PutInterests(ctx context.Context, userID string, interests []string) error {
	raw, err := json.Marshal(interestsOrEmpty(interests))
	if err != nil {
		return fmt.Errorf("put interests: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, interests) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE interests = VALUES(interests)`,
		userID, string(raw))
	if err != nil {
		return fmt.Errorf("put interests: %w", err)
	}
	return nil
}

// PutGrid implements GridStore.
func (m *MySQLStore) PutGrid(ctx context.Context, g model.MatchGrid) error {
	matches, err := json.Marshal(toMatchRecords(g.Matches))
	if err != nil {
		return fmt.Errorf("put grid: %w", err)
	}
	_, err = m.db.ExecContext(ctx, `
		INSERT INTO match_grids (user_id, event_id, matches, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE matches = VALUES(matches), updated_at = VALUES(updated_at)`,
		g.UserID, g.EventID, string(matches), g.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("put grid: %w", err)
	}
	return nil
}

// GetGrid implements GridStore.
func (m *MySQLStore) GetGrid(ctx context.Context, userID, eventID string) (model.MatchGrid, error) {
	var (
		raw []byte
		at  time.Time
	)
	err := m.db.QueryRowContext(ctx,
		`SELECT matches, updated_at FROM match_grids WHERE user_id = ? AND event_id = ?`,
		userID, eventID).Scan(&raw, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", ErrNotFound)
	}
	if err != nil {
		return model.MatchGrid{}, fmt.Errorf("get grid: %w", err)
	}
	return decodeGridRow(userID, eventID, raw, at)
}

// Close implements Backend.
func (m *MySQLStore) Close() error {
	return m.db.Close()
}
