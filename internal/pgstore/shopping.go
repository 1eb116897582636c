package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/shopping"

	"github.com/jackc/pgx/v5"
)

// ShoppingRepository stores one shopping list per menu plan.
type ShoppingRepository struct {
	s *Store
}

// Save stores the list for its menu plan, replacing any previous list.
func (r *ShoppingRepository) Save(ctx context.Context, list *shopping.ShoppingList) (int64, error) {
	items, err := json.Marshal(list.Items)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal shopping list items: %w", err)
	}
	created := r.s.timestamp()
	var id int64
	err = r.s.pool.QueryRow(ctx, `
		INSERT INTO shopping_lists (user_id, menu_plan_id, items, created_at)
		VALUES (@user_id, @plan_id, @items, @now)
		ON CONFLICT (menu_plan_id) DO UPDATE SET items = excluded.items, created_at = excluded.created_at
		RETURNING id`,
		pgx.NamedArgs{"user_id": list.UserID, "plan_id": list.MenuPlanID, "items": items, "now": created}).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert shopping list: %w", err)
	}
	list.ID = id
	list.CreatedAt = created
	return id, nil
}

// GetByMenuPlanID returns the plan's shopping list, or nil when it has none.
func (r *ShoppingRepository) GetByMenuPlanID(ctx context.Context, menuPlanID int64) (*shopping.ShoppingList, error) {
	var (
		list    shopping.ShoppingList
		items   []byte
		created time.Time
	)
	err := r.s.pool.QueryRow(ctx,
		`SELECT id, user_id, menu_plan_id, items, created_at FROM shopping_lists WHERE menu_plan_id = @plan_id`,
		pgx.NamedArgs{"plan_id": menuPlanID}).Scan(&list.ID, &list.UserID, &list.MenuPlanID, &items, &created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shopping list by menu plan ID: %w", err)
	}
	if err := json.Unmarshal(items, &list.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list items: %w", err)
	}
	list.CreatedAt = created.UTC()
	return &list, nil
}
