package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/database"
)

// PlanStore persists menu plans and enforces the activation rule.
type PlanStore interface {
	Save(ctx context.Context, plan *MenuPlan) error
	Get(ctx context.Context, id int64) (*MenuPlan, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]MenuPlan, error)
	ListByStatus(ctx context.Context, userID string, status PlanStatus) ([]MenuPlan, error)
	FindActive(ctx context.Context, userID string) (*MenuPlan, error)
	ListBalanced(ctx context.Context, userID string) ([]MenuPlan, error)
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]MenuPlan, error)
	ListCovering(ctx context.Context, userID string, day time.Time) ([]MenuPlan, error)
	Activate(ctx context.Context, id int64) (*MenuPlan, error)
	UpdateStatus(ctx context.Context, id int64, status PlanStatus) (*MenuPlan, error)
	Delete(ctx context.Context, id int64) error
}

// PlanRepository is a database-backed repository for menu plans.
// The plan is stored as JSON; status and dates are mirrored into columns, and
// the status column wins when the two disagree.
type PlanRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(d *sql.DB) *PlanRepository {
	return &PlanRepository{db: d, now: time.Now}
}

var _ PlanStore = (*PlanRepository)(nil)

const planColumns = `id, status, data, created_at, updated_at`

// Save inserts a new plan, or overwrites an existing one when plan.ID is set.
// Saving never changes which plan is active; use Activate for that.
func (r *PlanRepository) Save(ctx context.Context, plan *MenuPlan) error {
	if plan.Status == "" {
		plan.Status = StatusDraft
	}
	now := r.now().UTC().Truncate(time.Second)
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	plan.SortDays()

	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal menu plan to JSON: %w", err)
	}

	if plan.ID == 0 {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO menu_plans (user_id, status, start_date, end_date, balance_score, is_balanced, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			plan.UserID, string(plan.Status), database.FormatDate(plan.StartDate), database.FormatDate(plan.EndDate),
			plan.BalanceScore, plan.IsBalanced, string(data),
			database.FormatTime(plan.CreatedAt), database.FormatTime(now))
		if err != nil {
			if database.IsUniqueViolation(err) {
				return fmt.Errorf("%w: user already has an active plan", ErrInvalidTransition)
			}
			return fmt.Errorf("failed to insert menu plan: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read menu plan id: %w", err)
		}
		plan.ID = id
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE menu_plans
		SET status = ?, start_date = ?, end_date = ?, balance_score = ?, is_balanced = ?, data = ?, updated_at = ?
		WHERE id = ?`,
		string(plan.Status), database.FormatDate(plan.StartDate), database.FormatDate(plan.EndDate),
		plan.BalanceScore, plan.IsBalanced, string(data), database.FormatTime(now), plan.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: user already has an active plan", ErrInvalidTransition)
		}
		return fmt.Errorf("failed to update menu plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// Get retrieves a plan by its ID.
func (r *PlanRepository) Get(ctx context.Context, id int64) (*MenuPlan, error) {
	plan, err := scanPlan(r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM menu_plans WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get menu plan by ID: %w", err)
	}
	return plan, nil
}

// ListByUser returns a page of a user's plans, newest first.
func (r *PlanRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]MenuPlan, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset)
}

// ListByStatus returns a user's plans in the given status, newest first.
func (r *PlanRepository) ListByStatus(ctx context.Context, userID string, status PlanStatus) ([]MenuPlan, error) {
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC, id DESC`,
		userID, string(status))
}

// FindActive returns the user's active plan, or ErrPlanNotFound.
func (r *PlanRepository) FindActive(ctx context.Context, userID string) (*MenuPlan, error) {
	plan, err := scanPlan(r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM menu_plans WHERE user_id = ? AND status = ?`,
		userID, string(StatusActive)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get active menu plan: %w", err)
	}
	return plan, nil
}

// ListBalanced returns the user's balanced plans, best score first.
func (r *PlanRepository) ListBalanced(ctx context.Context, userID string) ([]MenuPlan, error) {
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = ? AND is_balanced = 1
		ORDER BY balance_score DESC, id DESC`,
		userID)
}

// ListBetween returns the plans lying entirely within [from, to].
func (r *PlanRepository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]MenuPlan, error) {
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = ? AND start_date >= ? AND end_date <= ?
		ORDER BY start_date, id`,
		userID, database.FormatDate(from), database.FormatDate(to))
}

// ListCovering returns the plans whose date range includes day.
func (r *PlanRepository) ListCovering(ctx context.Context, userID string, day time.Time) ([]MenuPlan, error) {
	d := database.FormatDate(day)
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date, id`,
		userID, d, d)
}

// Activate makes a plan the user's only active plan. Any other active plan of
// the same user is marked COMPLETED in the same transaction. Archived plans
// cannot be activated; activating the active plan is a no-op.
func (r *PlanRepository) Activate(ctx context.Context, id int64) (*MenuPlan, error) {
	return r.activate(ctx, id, false)
}

// UpdateStatus sets a plan's status directly, from any status. Moving to
// ACTIVE still completes the user's other active plan.
func (r *PlanRepository) UpdateStatus(ctx context.Context, id int64, status PlanStatus) (*MenuPlan, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if status == StatusActive {
		return r.activate(ctx, id, true)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_plans SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), database.FormatTime(r.now()), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update menu plan status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrPlanNotFound
	}
	return r.Get(ctx, id)
}

func (r *PlanRepository) activate(ctx context.Context, id int64, force bool) (*MenuPlan, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	plan, err := scanPlan(tx.QueryRowContext(ctx, `SELECT `+planColumns+` FROM menu_plans WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to load menu plan: %w", err)
	}
	if plan.Status == StatusActive {
		return plan, nil
	}
	if !force && !plan.Status.CanActivate() {
		return nil, fmt.Errorf("%w: cannot activate a %s plan", ErrInvalidTransition, plan.Status)
	}

	now := database.FormatTime(r.now())
	if _, err := tx.ExecContext(ctx, `
		UPDATE menu_plans SET status = ?, updated_at = ?
		WHERE user_id = ? AND status = ? AND id <> ?`,
		string(StatusCompleted), now, plan.UserID, string(StatusActive), id); err != nil {
		return nil, fmt.Errorf("failed to complete previously active plans: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE menu_plans SET status = ?, updated_at = ? WHERE id = ?`,
		string(StatusActive), now, id); err != nil {
		return nil, fmt.Errorf("failed to activate menu plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activation: %w", err)
	}

	plan.Status = StatusActive
	return plan, nil
}

// Delete removes a plan together with its shopping list.
func (r *PlanRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM menu_plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepository) queryMany(ctx context.Context, query string, args ...any) ([]MenuPlan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu plans: %w", err)
	}
	defer rows.Close()

	var plans []MenuPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (*MenuPlan, error) {
	var (
		id                   int64
		status, data         string
		createdAt, updatedAt string
	)
	if err := s.Scan(&id, &status, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var plan MenuPlan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal menu plan JSON for ID %d: %w", id, err)
	}
	plan.ID = id
	plan.Status = PlanStatus(status)
	plan.SortDays()

	var err error
	if plan.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if plan.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &plan, nil
}
