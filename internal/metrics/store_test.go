package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"balanced-meal-planner/internal/database"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s := NewStore(db.SQL)
	s.now = func() time.Time { return now }
	return s
}

func TestStore_DailyUsageAndCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, now)

	metrics := []GenerationMetric{
		{UserID: "u1", Layout: "courses", Outcome: OutcomeSuccess, BalanceScore: 80, LatencyMS: 10, Timestamp: now.Add(-time.Hour)},
		{UserID: "u1", Layout: "courses", Outcome: OutcomeSuccess, BalanceScore: 60, LatencyMS: 30, Timestamp: now.Add(-2 * time.Hour)},
		{UserID: "u2", Layout: "meals", Outcome: OutcomeCoverage, LatencyMS: 5, Timestamp: now.Add(-3 * time.Hour)},
		{UserID: "u1", Layout: "courses", Outcome: OutcomeSuccess, BalanceScore: 90, LatencyMS: 20, Timestamp: now.AddDate(0, 0, -1)},
		{UserID: "u1", Layout: "courses", Outcome: OutcomeSuccess, BalanceScore: 90, LatencyMS: 20, Timestamp: now.AddDate(0, 0, -40)},
	}
	for _, m := range metrics {
		if err := s.Record(ctx, m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := s.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("Expected 2 days of usage, got %+v", usage)
	}
	today := usage[0]
	if today.Date != "2025-03-12" || today.Generations != 3 || today.Successes != 2 {
		t.Errorf("Unexpected usage for today: %+v", today)
	}
	if today.AverageScore != 70 || today.AverageLatencyMS != 15 {
		t.Errorf("Expected average score 70 and latency 15, got %+v", today)
	}

	removed, err := s.Cleanup(ctx, 30)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 old record removed, got %d", removed)
	}
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.db"), make([]byte, 2048), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	h := GetSysHealth(dir)
	if h.DataDiskSize != "2.0 KiB" {
		t.Errorf("Expected 2.0 KiB, got %s", h.DataDiskSize)
	}
	if h.Goroutines < 1 || h.Alloc == "" {
		t.Errorf("Unexpected health: %+v", h)
	}
}
