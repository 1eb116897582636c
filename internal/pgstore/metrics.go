package pgstore

import (
	"context"
	"fmt"

	"balanced-meal-planner/internal/metrics"

	"github.com/jackc/pgx/v5"
)

// MetricsStore records generation metrics.
type MetricsStore struct {
	s *Store
}

// Record saves a metric.
func (m *MetricsStore) Record(ctx context.Context, g metrics.GenerationMetric) error {
	ts := g.Timestamp
	if ts.IsZero() {
		ts = m.s.timestamp()
	}
	_, err := m.s.pool.Exec(ctx, `
		INSERT INTO generation_metrics (user_id, layout, outcome, candidate_recipes, feasible_recipes, balance_score, latency_ms, "timestamp")
		VALUES (@user_id, @layout, @outcome, @candidates, @feasible, @score, @latency, @ts)`,
		pgx.NamedArgs{
			"user_id":    g.UserID,
			"layout":     g.Layout,
			"outcome":    string(g.Outcome),
			"candidates": g.CandidateRecipes,
			"feasible":   g.FeasibleRecipes,
			"score":      g.BalanceScore,
			"latency":    g.LatencyMS,
			"ts":         ts,
		})
	if err != nil {
		return fmt.Errorf("failed to insert generation metric: %w", err)
	}
	return nil
}

type dailyUsageRow struct {
	Day          string   `db:"day"`
	Generations  int      `db:"generations"`
	Successes    int      `db:"successes"`
	AverageScore *float64 `db:"average_score"`
	AverageMS    *float64 `db:"average_ms"`
}

// GetDailyUsage retrieves usage for the last N days, most recent first. Days
// are UTC calendar days.
func (m *MetricsStore) GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error) {
	rows, err := m.s.pool.Query(ctx, `
		SELECT to_char("timestamp" AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		       COUNT(*) AS generations,
		       COUNT(*) FILTER (WHERE outcome = @success) AS successes,
		       (AVG(balance_score) FILTER (WHERE outcome = @success))::float8 AS average_score,
		       AVG(latency_ms)::float8 AS average_ms
		FROM generation_metrics
		WHERE "timestamp" >= @since
		GROUP BY day
		ORDER BY day DESC`,
		pgx.NamedArgs{"success": string(metrics.OutcomeSuccess), "since": m.s.timestamp().AddDate(0, 0, -days)})
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[dailyUsageRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily usage: %w", err)
	}

	out := make([]metrics.DailyUsage, 0, len(found))
	for _, row := range found {
		u := metrics.DailyUsage{Date: row.Day, Generations: row.Generations, Successes: row.Successes}
		if row.AverageScore != nil {
			u.AverageScore = *row.AverageScore
		}
		if row.AverageMS != nil {
			u.AverageLatencyMS = int64(*row.AverageMS)
		}
		out = append(out, u)
	}
	return out, nil
}

// Cleanup removes records older than the specified number of days.
func (m *MetricsStore) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	tag, err := m.s.pool.Exec(ctx,
		`DELETE FROM generation_metrics WHERE "timestamp" < @threshold`,
		pgx.NamedArgs{"threshold": m.s.timestamp().AddDate(0, 0, -olderThanDays)})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up generation metrics: %w", err)
	}
	return tag.RowsAffected(), nil
}
