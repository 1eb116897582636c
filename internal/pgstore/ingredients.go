package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/ingredient"
	"balanced-meal-planner/internal/units"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// IngredientRepository stores ingredients and their nutrition records.
type IngredientRepository struct {
	s *Store
}

const ingredientColumns = `id, user_id, name, category, quantity::text AS quantity, unit, expiry_date, notes, available, created_at, updated_at`

type ingredientRow struct {
	ID         int64      `db:"id"`
	UserID     string     `db:"user_id"`
	Name       string     `db:"name"`
	Category   string     `db:"category"`
	Quantity   string     `db:"quantity"`
	Unit       string     `db:"unit"`
	ExpiryDate *time.Time `db:"expiry_date"`
	Notes      string     `db:"notes"`
	Available  bool       `db:"available"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r ingredientRow) toIngredient() (ingredient.Ingredient, error) {
	q, err := decimal.NewFromString(r.Quantity)
	if err != nil {
		return ingredient.Ingredient{}, fmt.Errorf("invalid stored quantity %q: %w", r.Quantity, err)
	}
	ing := ingredient.Ingredient{
		ID:         r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Category:   ingredient.Category(r.Category),
		Quantity:   q,
		Unit:       units.Unit(r.Unit),
		ExpiryDate: r.ExpiryDate,
		Notes:      r.Notes,
		Available:  r.Available,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
	if ing.ExpiryDate != nil {
		d := ing.ExpiryDate.UTC()
		ing.ExpiryDate = &d
	}
	return ing, nil
}

// Create inserts a new ingredient and fills in its ID and timestamps.
func (r *IngredientRepository) Create(ctx context.Context, ing *ingredient.Ingredient) error {
	if err := ing.Validate(); err != nil {
		return err
	}
	now := r.s.timestamp()
	err := r.s.pool.QueryRow(ctx, `
		INSERT INTO ingredients (user_id, name, category, quantity, unit, expiry_date, notes, available, created_at, updated_at)
		VALUES (@user_id, @name, @category, @quantity::numeric, @unit, @expiry_date, @notes, @available, @now, @now)
		RETURNING id`,
		pgx.NamedArgs{
			"user_id":     ing.UserID,
			"name":        ing.Name,
			"category":    string(ing.Category),
			"quantity":    ing.Quantity.String(),
			"unit":        string(ing.Unit),
			"expiry_date": ing.ExpiryDate,
			"notes":       ing.Notes,
			"available":   ing.Available,
			"now":         now,
		}).Scan(&ing.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ingredient.ErrDuplicateName
		}
		return fmt.Errorf("failed to insert ingredient: %w", err)
	}
	ing.CreatedAt, ing.UpdatedAt = now, now
	return nil
}

// Get retrieves an ingredient by its ID.
func (r *IngredientRepository) Get(ctx context.Context, id int64) (*ingredient.Ingredient, error) {
	ing, err := r.queryOne(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ingredient.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient by ID: %w", err)
	}
	return ing, nil
}

// GetByName finds a user's ingredient by name, ignoring case. It returns nil when absent.
func (r *IngredientRepository) GetByName(ctx context.Context, userID, name string) (*ingredient.Ingredient, error) {
	ing, err := r.queryOne(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE user_id = @user_id AND lower(name) = lower(@name)`,
		pgx.NamedArgs{"user_id": userID, "name": name})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ingredient by name: %w", err)
	}
	return ing, nil
}

// List returns a user's ingredients ordered by name. An empty category lists all of them.
func (r *IngredientRepository) List(ctx context.Context, userID string, category ingredient.Category) ([]ingredient.Ingredient, error) {
	return r.queryMany(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients
		WHERE user_id = @user_id AND (@category = '' OR category = @category)
		ORDER BY lower(name)`,
		pgx.NamedArgs{"user_id": userID, "category": string(category)})
}

// FindAvailable returns the user's available ingredients that have not expired before asOf.
func (r *IngredientRepository) FindAvailable(ctx context.Context, userID string, asOf time.Time) ([]ingredient.Ingredient, error) {
	return r.queryMany(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients
		WHERE user_id = @user_id AND available AND (expiry_date IS NULL OR expiry_date >= @as_of::date)
		ORDER BY lower(name)`,
		pgx.NamedArgs{"user_id": userID, "as_of": asOf.Format("2006-01-02")})
}

// FindExpiring returns available ingredients expiring between from and to, inclusive.
func (r *IngredientRepository) FindExpiring(ctx context.Context, userID string, from, to time.Time) ([]ingredient.Ingredient, error) {
	return r.queryMany(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients
		WHERE user_id = @user_id AND available AND expiry_date BETWEEN @from::date AND @to::date
		ORDER BY expiry_date, lower(name)`,
		pgx.NamedArgs{"user_id": userID, "from": from.Format("2006-01-02"), "to": to.Format("2006-01-02")})
}

// Update overwrites the mutable fields of an existing ingredient.
func (r *IngredientRepository) Update(ctx context.Context, ing *ingredient.Ingredient) error {
	if err := ing.Validate(); err != nil {
		return err
	}
	now := r.s.timestamp()
	tag, err := r.s.pool.Exec(ctx, `
		UPDATE ingredients
		SET name = @name, category = @category, quantity = @quantity::numeric, unit = @unit,
		    expiry_date = @expiry_date, notes = @notes, available = @available, updated_at = @now
		WHERE id = @id`,
		pgx.NamedArgs{
			"id":          ing.ID,
			"name":        ing.Name,
			"category":    string(ing.Category),
			"quantity":    ing.Quantity.String(),
			"unit":        string(ing.Unit),
			"expiry_date": ing.ExpiryDate,
			"notes":       ing.Notes,
			"available":   ing.Available,
			"now":         now,
		})
	if err != nil {
		if isUniqueViolation(err) {
			return ingredient.ErrDuplicateName
		}
		return fmt.Errorf("failed to update ingredient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ingredient.ErrNotFound
	}
	ing.UpdatedAt = now
	return nil
}

// SetAvailability toggles the availability flag of an ingredient.
func (r *IngredientRepository) SetAvailability(ctx context.Context, id int64, available bool) error {
	tag, err := r.s.pool.Exec(ctx,
		`UPDATE ingredients SET available = @available, updated_at = @now WHERE id = @id`,
		pgx.NamedArgs{"id": id, "available": available, "now": r.s.timestamp()})
	if err != nil {
		return fmt.Errorf("failed to update ingredient availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ingredient.ErrNotFound
	}
	return nil
}

// Delete removes an ingredient together with its nutrition record.
func (r *IngredientRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM ingredients WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ingredient.ErrNotFound
	}
	return nil
}

// SaveNutrition inserts or replaces the nutrition record of an ingredient.
func (r *IngredientRepository) SaveNutrition(ctx context.Context, rec ingredient.NutritionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal nutrition record to JSON: %w", err)
	}
	_, err = r.s.pool.Exec(ctx, `
		INSERT INTO ingredient_nutrition (ingredient_id, data, updated_at) VALUES (@id, @data, @now)
		ON CONFLICT (ingredient_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		pgx.NamedArgs{"id": rec.IngredientID, "data": data, "now": r.s.timestamp()})
	if err != nil {
		return fmt.Errorf("failed to save nutrition record: %w", err)
	}
	return nil
}

// FindNutrition returns the nutrition record of an ingredient, or nil when it has none.
func (r *IngredientRepository) FindNutrition(ctx context.Context, ingredientID int64) (*ingredient.NutritionRecord, error) {
	var data []byte
	err := r.s.pool.QueryRow(ctx,
		`SELECT data FROM ingredient_nutrition WHERE ingredient_id = @id`,
		pgx.NamedArgs{"id": ingredientID}).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get nutrition record: %w", err)
	}
	var rec ingredient.NutritionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nutrition record JSON: %w", err)
	}
	rec.IngredientID = ingredientID
	return &rec, nil
}

func (r *IngredientRepository) queryOne(ctx context.Context, sql string, args pgx.NamedArgs) (*ingredient.Ingredient, error) {
	rows, err := r.s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[ingredientRow])
	if err != nil {
		return nil, err
	}
	ing, err := row.toIngredient()
	if err != nil {
		return nil, err
	}
	return &ing, nil
}

func (r *IngredientRepository) queryMany(ctx context.Context, sql string, args pgx.NamedArgs) ([]ingredient.Ingredient, error) {
	rows, err := r.s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[ingredientRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ingredient: %w", err)
	}
	out := make([]ingredient.Ingredient, 0, len(found))
	for _, row := range found {
		ing, err := row.toIngredient()
		if err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, nil
}
