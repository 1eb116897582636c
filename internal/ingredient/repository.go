package ingredient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"balanced-meal-planner/internal/database"
	"balanced-meal-planner/internal/units"

	"github.com/shopspring/decimal"
)

// Repository is a database-backed repository for ingredients and their nutrition records.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

const ingredientColumns = `id, user_id, name, category, quantity, unit, expiry_date, notes, available, created_at, updated_at`

// Create inserts a new ingredient and fills in its ID and timestamps.
func (r *Repository) Create(ctx context.Context, ing *Ingredient) error {
	if err := ing.Validate(); err != nil {
		return err
	}
	now := r.now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ingredients (user_id, name, category, quantity, unit, expiry_date, notes, available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ing.UserID, ing.Name, string(ing.Category), ing.Quantity.String(), string(ing.Unit),
		nullableDate(ing.ExpiryDate), ing.Notes, ing.Available,
		database.FormatTime(now), database.FormatTime(now),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert ingredient: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read ingredient id: %w", err)
	}
	ing.ID = id
	ing.CreatedAt = now
	ing.UpdatedAt = now
	return nil
}

// Get retrieves an ingredient by its ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Ingredient, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = ?`, id)
	ing, err := scanIngredient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ingredient by ID: %w", err)
	}
	return ing, nil
}

// GetByName finds a user's ingredient by name, ignoring case. It returns nil when absent.
func (r *Repository) GetByName(ctx context.Context, userID, name string) (*Ingredient, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ingredientColumns+` FROM ingredients WHERE user_id = ? AND name = ? COLLATE NOCASE`,
		userID, name)
	ing, err := scanIngredient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ingredient by name: %w", err)
	}
	return ing, nil
}

// List returns a user's ingredients ordered by name. An empty category lists all of them.
func (r *Repository) List(ctx context.Context, userID string, category Category) ([]Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE user_id = ?`
	args := []any{userID}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY name COLLATE NOCASE`
	return r.queryMany(ctx, query, args...)
}

// FindAvailable returns the user's ingredients that are flagged available and
// have no expiry date or one on or after asOf.
func (r *Repository) FindAvailable(ctx context.Context, userID string, asOf time.Time) ([]Ingredient, error) {
	return r.queryMany(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients
		WHERE user_id = ? AND available = 1 AND (expiry_date IS NULL OR expiry_date >= ?)
		ORDER BY name COLLATE NOCASE`,
		userID, database.FormatDate(asOf))
}

// FindExpiring returns available ingredients expiring between from and to, inclusive.
func (r *Repository) FindExpiring(ctx context.Context, userID string, from, to time.Time) ([]Ingredient, error) {
	return r.queryMany(ctx, `
		SELECT `+ingredientColumns+` FROM ingredients
		WHERE user_id = ? AND available = 1 AND expiry_date BETWEEN ? AND ?
		ORDER BY expiry_date, name COLLATE NOCASE`,
		userID, database.FormatDate(from), database.FormatDate(to))
}

// Update overwrites the mutable fields of an existing ingredient.
func (r *Repository) Update(ctx context.Context, ing *Ingredient) error {
	if err := ing.Validate(); err != nil {
		return err
	}
	now := r.now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		UPDATE ingredients
		SET name = ?, category = ?, quantity = ?, unit = ?, expiry_date = ?, notes = ?, available = ?, updated_at = ?
		WHERE id = ?`,
		ing.Name, string(ing.Category), ing.Quantity.String(), string(ing.Unit),
		nullableDate(ing.ExpiryDate), ing.Notes, ing.Available, database.FormatTime(now), ing.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to update ingredient: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	ing.UpdatedAt = now
	return nil
}

// SetAvailability toggles the availability flag of an ingredient.
func (r *Repository) SetAvailability(ctx context.Context, id int64, available bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ingredients SET available = ?, updated_at = ? WHERE id = ?`,
		available, database.FormatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update ingredient availability: %w", err)
	}
	return expectOneRow(res)
}

// Delete removes an ingredient together with its nutrition record.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}
	return expectOneRow(res)
}

// SaveNutrition inserts or replaces the nutrition record of an ingredient.
func (r *Repository) SaveNutrition(ctx context.Context, rec NutritionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal nutrition record to JSON: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ingredient_nutrition (ingredient_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(ingredient_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		rec.IngredientID, string(data), database.FormatTime(r.now()))
	if err != nil {
		return fmt.Errorf("failed to save nutrition record: %w", err)
	}
	return nil
}

// FindNutrition returns the nutrition record of an ingredient, or nil when it has none.
func (r *Repository) FindNutrition(ctx context.Context, ingredientID int64) (*NutritionRecord, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM ingredient_nutrition WHERE ingredient_id = ?`, ingredientID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get nutrition record: %w", err)
	}
	var rec NutritionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nutrition record JSON: %w", err)
	}
	rec.IngredientID = ingredientID
	return &rec, nil
}

func (r *Repository) queryMany(ctx context.Context, query string, args ...any) ([]Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var out []Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		out = append(out, *ing)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIngredient(s scanner) (*Ingredient, error) {
	var (
		ing                  Ingredient
		category, unit, qty  string
		expiry               sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&ing.ID, &ing.UserID, &ing.Name, &category, &qty, &unit,
		&expiry, &ing.Notes, &ing.Available, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ing.Category = Category(category)
	ing.Unit = units.Unit(unit)

	q, err := decimal.NewFromString(qty)
	if err != nil {
		return nil, fmt.Errorf("invalid stored quantity %q: %w", qty, err)
	}
	ing.Quantity = q

	if expiry.Valid {
		d, err := database.ParseDate(expiry.String)
		if err != nil {
			return nil, err
		}
		ing.ExpiryDate = &d
	}
	if ing.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if ing.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &ing, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return database.FormatDate(*t)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
