package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/database"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

// Save stores the list for its menu plan, replacing any previous list.
func (r *Repository) Save(ctx context.Context, list *ShoppingList) (int64, error) {
	itemsJSON, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}

	created := r.now().UTC().Truncate(time.Second)
	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO shopping_lists (user_id, menu_plan_id, items, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (menu_plan_id) DO UPDATE SET items = excluded.items, created_at = excluded.created_at
		RETURNING id`,
		list.UserID, list.MenuPlanID, string(itemsJSON), database.FormatTime(created)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}

	list.ID = id
	list.CreatedAt = created
	return id, nil
}

// GetByMenuPlanID retrieves a shopping list by menu plan ID.
// It returns nil, nil when the plan has no list.
func (r *Repository) GetByMenuPlanID(ctx context.Context, menuPlanID int64) (*ShoppingList, error) {
	var (
		list      ShoppingList
		items     string
		createdAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, menu_plan_id, items, created_at FROM shopping_lists WHERE menu_plan_id = ?`,
		menuPlanID).Scan(&list.ID, &list.UserID, &list.MenuPlanID, &items, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No shopping list found
		}
		return nil, fmt.Errorf("failed to get shopping list by menu plan ID: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	if list.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteByMenuPlanID deletes a shopping list by menu plan ID.
func (r *Repository) DeleteByMenuPlanID(ctx context.Context, menuPlanID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shopping_lists WHERE menu_plan_id = ?`, menuPlanID); err != nil {
		return fmt.Errorf("failed to delete shopping list: %w", err)
	}
	return nil
}
