package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/planner"

	"github.com/jackc/pgx/v5"
)

// PlanRepository stores menu plans as JSONB. Status and dates are mirrored
// into columns, and the status column wins when the two disagree.
type PlanRepository struct {
	s *Store
}

var _ planner.PlanStore = (*PlanRepository)(nil)

const planColumns = `id, status, data, created_at, updated_at`

type planRow struct {
	ID        int64     `db:"id"`
	Status    string    `db:"status"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row planRow) toPlan() (*planner.MenuPlan, error) {
	var plan planner.MenuPlan
	if err := json.Unmarshal(row.Data, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal menu plan JSON for ID %d: %w", row.ID, err)
	}
	plan.ID = row.ID
	plan.Status = planner.PlanStatus(row.Status)
	plan.CreatedAt = row.CreatedAt.UTC()
	plan.UpdatedAt = row.UpdatedAt.UTC()
	plan.SortDays()
	return &plan, nil
}

// Save inserts a new plan, or overwrites an existing one when plan.ID is set.
// Saving never changes which plan is active; use Activate for that.
func (r *PlanRepository) Save(ctx context.Context, plan *planner.MenuPlan) error {
	if plan.Status == "" {
		plan.Status = planner.StatusDraft
	}
	now := r.s.timestamp()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	plan.SortDays()

	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal menu plan to JSON: %w", err)
	}
	args := pgx.NamedArgs{
		"id":            plan.ID,
		"user_id":       plan.UserID,
		"status":        string(plan.Status),
		"start_date":    plan.StartDate.Format("2006-01-02"),
		"end_date":      plan.EndDate.Format("2006-01-02"),
		"balance_score": plan.BalanceScore,
		"is_balanced":   plan.IsBalanced,
		"data":          data,
		"created_at":    plan.CreatedAt,
		"now":           now,
	}

	if plan.ID == 0 {
		err := r.s.pool.QueryRow(ctx, `
			INSERT INTO menu_plans (user_id, status, start_date, end_date, balance_score, is_balanced, data, created_at, updated_at)
			VALUES (@user_id, @status, @start_date::date, @end_date::date, @balance_score, @is_balanced, @data, @created_at, @now)
			RETURNING id`, args).Scan(&plan.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: user already has an active plan", planner.ErrInvalidTransition)
			}
			return fmt.Errorf("failed to insert menu plan: %w", err)
		}
		return nil
	}

	tag, err := r.s.pool.Exec(ctx, `
		UPDATE menu_plans
		SET status = @status, start_date = @start_date::date, end_date = @end_date::date,
		    balance_score = @balance_score, is_balanced = @is_balanced, data = @data, updated_at = @now
		WHERE id = @id`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user already has an active plan", planner.ErrInvalidTransition)
		}
		return fmt.Errorf("failed to update menu plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return planner.ErrPlanNotFound
	}
	return nil
}

// Get retrieves a plan by its ID.
func (r *PlanRepository) Get(ctx context.Context, id int64) (*planner.MenuPlan, error) {
	plan, err := queryPlan(ctx, r.s.pool, `SELECT `+planColumns+` FROM menu_plans WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, planner.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get menu plan by ID: %w", err)
	}
	return plan, nil
}

// ListByUser returns a page of a user's plans, newest first. A non-positive
// limit returns every plan.
func (r *PlanRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]planner.MenuPlan, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = @user_id
		ORDER BY created_at DESC, id DESC
		LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{"user_id": userID, "limit": lim, "offset": offset})
}

// ListByStatus returns a user's plans in the given status, newest first.
func (r *PlanRepository) ListByStatus(ctx context.Context, userID string, status planner.PlanStatus) ([]planner.MenuPlan, error) {
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = @user_id AND status = @status
		ORDER BY created_at DESC, id DESC`,
		pgx.NamedArgs{"user_id": userID, "status": string(status)})
}

// FindActive returns the user's active plan, or planner.ErrPlanNotFound.
func (r *PlanRepository) FindActive(ctx context.Context, userID string) (*planner.MenuPlan, error) {
	plan, err := queryPlan(ctx, r.s.pool,
		`SELECT `+planColumns+` FROM menu_plans WHERE user_id = @user_id AND status = @status`,
		pgx.NamedArgs{"user_id": userID, "status": string(planner.StatusActive)})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, planner.ErrPlanNotFound
		}
		return nil, fmt.Errorf("failed to get active menu plan: %w", err)
	}
	return plan, nil
}

// ListBalanced returns the user's balanced plans, best score first.
func (r *PlanRepository) ListBalanced(ctx context.Context, userID string) ([]planner.MenuPlan, error) {
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = @user_id AND is_balanced
		ORDER BY balance_score DESC, id DESC`,
		pgx.NamedArgs{"user_id": userID})
}

// ListBetween returns the plans lying entirely within [from, to].
func (r *PlanRepository) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]planner.MenuPlan, error) {
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = @user_id AND start_date >= @from::date AND end_date <= @to::date
		ORDER BY start_date, id`,
		pgx.NamedArgs{"user_id": userID, "from": from.Format("2006-01-02"), "to": to.Format("2006-01-02")})
}

// ListCovering returns the plans whose date range includes day.
func (r *PlanRepository) ListCovering(ctx context.Context, userID string, day time.Time) ([]planner.MenuPlan, error) {
	return r.queryMany(ctx, `
		SELECT `+planColumns+` FROM menu_plans
		WHERE user_id = @user_id AND start_date <= @day::date AND end_date >= @day::date
		ORDER BY start_date, id`,
		pgx.NamedArgs{"user_id": userID, "day": day.Format("2006-01-02")})
}

// Activate makes a plan the user's only active plan. The user's other active
// plan is marked COMPLETED in the same transaction, with both rows locked.
func (r *PlanRepository) Activate(ctx context.Context, id int64) (*planner.MenuPlan, error) {
	return r.activate(ctx, id, false)
}

// UpdateStatus sets a plan's status directly, from any status. Moving to
// ACTIVE still completes the user's other active plan.
func (r *PlanRepository) UpdateStatus(ctx context.Context, id int64, status planner.PlanStatus) (*planner.MenuPlan, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", planner.ErrInvalidTransition, status)
	}
	if status == planner.StatusActive {
		return r.activate(ctx, id, true)
	}
	tag, err := r.s.pool.Exec(ctx,
		`UPDATE menu_plans SET status = @status, updated_at = @now WHERE id = @id`,
		pgx.NamedArgs{"id": id, "status": string(status), "now": r.s.timestamp()})
	if err != nil {
		return nil, fmt.Errorf("failed to update menu plan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, planner.ErrPlanNotFound
	}
	return r.Get(ctx, id)
}

func (r *PlanRepository) activate(ctx context.Context, id int64, force bool) (*planner.MenuPlan, error) {
	var plan *planner.MenuPlan
	err := pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		var err error
		plan, err = queryPlan(ctx, tx,
			`SELECT `+planColumns+` FROM menu_plans WHERE id = @id FOR UPDATE`, pgx.NamedArgs{"id": id})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return planner.ErrPlanNotFound
			}
			return fmt.Errorf("failed to load menu plan: %w", err)
		}
		if plan.Status == planner.StatusActive {
			return nil
		}
		if !force && !plan.Status.CanActivate() {
			return fmt.Errorf("%w: cannot activate a %s plan", planner.ErrInvalidTransition, plan.Status)
		}

		args := pgx.NamedArgs{
			"id":        id,
			"user_id":   plan.UserID,
			"active":    string(planner.StatusActive),
			"completed": string(planner.StatusCompleted),
			"now":       r.s.timestamp(),
		}
		if _, err := tx.Exec(ctx, `
			UPDATE menu_plans SET status = @completed, updated_at = @now
			WHERE user_id = @user_id AND status = @active AND id <> @id`, args); err != nil {
			return fmt.Errorf("failed to complete previously active plans: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE menu_plans SET status = @active, updated_at = @now WHERE id = @id`, args); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: another plan was activated concurrently", planner.ErrInvalidTransition)
			}
			return fmt.Errorf("failed to activate menu plan: %w", err)
		}
		plan.Status = planner.StatusActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Delete removes a plan together with its shopping list.
func (r *PlanRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM menu_plans WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete menu plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return planner.ErrPlanNotFound
	}
	return nil
}

func (r *PlanRepository) queryMany(ctx context.Context, sql string, args pgx.NamedArgs) ([]planner.MenuPlan, error) {
	rows, err := r.s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu plans: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[planRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan menu plan: %w", err)
	}
	plans := make([]planner.MenuPlan, 0, len(found))
	for _, row := range found {
		plan, err := row.toPlan()
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryPlan(ctx context.Context, q querier, sql string, args pgx.NamedArgs) (*planner.MenuPlan, error) {
	rows, err := q.Query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[planRow])
	if err != nil {
		return nil, err
	}
	return row.toPlan()
}
