package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"balanced-meal-planner/internal/database"
)

// Outcome classifies how a generation ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNoIngredients Outcome = "no_ingredients"
	OutcomeNoRecipes     Outcome = "no_feasible_recipes"
	OutcomeCoverage      Outcome = "insufficient_coverage"
	OutcomeInvalid       Outcome = "invalid_request"
	OutcomeError         Outcome = "error"
)

// GenerationMetric records metadata for a single menu generation.
type GenerationMetric struct {
	UserID           string
	Layout           string
	Outcome          Outcome
	CandidateRecipes int
	FeasibleRecipes  int
	BalanceScore     float64
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m GenerationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_metrics (user_id, layout, outcome, candidate_recipes, feasible_recipes, balance_score, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.Layout, string(m.Outcome), m.CandidateRecipes, m.FeasibleRecipes,
		m.BalanceScore, m.LatencyMS, database.FormatTime(ts))
	if err != nil {
		return fmt.Errorf("failed to insert generation metric: %w", err)
	}
	return nil
}

// DailyUsage aggregates the generations of a single day.
type DailyUsage struct {
	Date             string
	Generations      int
	Successes        int
	AverageScore     float64
	AverageLatencyMS int64
}

// GetDailyUsage retrieves usage for the last N days, most recent first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := database.FormatTime(s.now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day,
		       COUNT(*),
		       SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END),
		       AVG(CASE WHEN outcome = ? THEN balance_score END),
		       AVG(latency_ms)
		FROM generation_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`,
		string(OutcomeSuccess), string(OutcomeSuccess), since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var (
			u       DailyUsage
			score   sql.NullFloat64
			latency sql.NullFloat64
		)
		if err := rows.Scan(&u.Date, &u.Generations, &u.Successes, &score, &latency); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		if score.Valid {
			u.AverageScore = score.Float64
		}
		if latency.Valid {
			u.AverageLatencyMS = int64(latency.Float64)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := database.FormatTime(s.now().AddDate(0, 0, -olderThanDays))
	res, err := s.db.ExecContext(ctx, `DELETE FROM generation_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up generation metrics: %w", err)
	}
	return res.RowsAffected()
}
