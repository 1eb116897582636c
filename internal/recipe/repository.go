package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"balanced-meal-planner/internal/database"
)

// Repository is a database-backed repository for recipes.
// The full recipe is stored as JSON; searchable fields are mirrored into columns.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

const recipeColumns = `r.id, r.user_id, r.active, r.data, r.created_at, r.updated_at`

// Create inserts a recipe after checking that every referenced ingredient
// belongs to the same user.
func (r *Repository) Create(ctx context.Context, rec *Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkIngredients(ctx, tx, rec.UserID, rec.IngredientIDs()); err != nil {
		return err
	}

	now := r.now().UTC().Truncate(time.Second)
	rec.CreatedAt, rec.UpdatedAt = now, now
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO recipes (user_id, name, category, cooking_time_minutes, active, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Name, string(rec.Category), rec.CookingTimeMinutes, rec.Active,
		string(data), database.FormatTime(now), database.FormatTime(now))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to insert recipe: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read recipe id: %w", err)
	}

	if err := replaceLinks(ctx, tx, id, rec.IngredientIDs()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipe: %w", err)
	}
	rec.ID = id
	return nil
}

// Update overwrites an existing recipe and its ingredient links.
func (r *Repository) Update(ctx context.Context, rec *Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkIngredients(ctx, tx, rec.UserID, rec.IngredientIDs()); err != nil {
		return err
	}

	rec.UpdatedAt = r.now().UTC().Truncate(time.Second)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE recipes SET name = ?, category = ?, cooking_time_minutes = ?, active = ?, data = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		rec.Name, string(rec.Category), rec.CookingTimeMinutes, rec.Active, string(data),
		database.FormatTime(rec.UpdatedAt), rec.ID, rec.UserID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := replaceLinks(ctx, tx, rec.ID, rec.IngredientIDs()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipe: %w", err)
	}
	return nil
}

// Get retrieves a recipe by its ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Recipe, error) {
	rec, err := scanRecipe(r.db.QueryRowContext(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	return rec, nil
}

// GetByIDs retrieves multiple recipes by their IDs. Unknown IDs are ignored.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) ([]Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.queryMany(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.id IN (`+placeholders(len(ids))+`) ORDER BY r.id`,
		args...)
}

// List returns a user's recipes ordered by name. An empty category lists all of them.
func (r *Repository) List(ctx context.Context, userID string, category Category) ([]Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes r WHERE r.user_id = ?`
	args := []any{userID}
	if category != "" {
		query += ` AND r.category = ?`
		args = append(args, string(category))
	}
	return r.queryMany(ctx, query+` ORDER BY r.name COLLATE NOCASE`, args...)
}

// Search returns a user's recipes whose name contains term, ignoring case.
func (r *Repository) Search(ctx context.Context, userID, term string) ([]Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		WHERE r.user_id = ? AND r.name LIKE ? ESCAPE '\'
		ORDER BY r.name COLLATE NOCASE`,
		userID, "%"+escapeLike(term)+"%")
}

// ListByIngredient returns the recipes that reference an ingredient.
func (r *Repository) ListByIngredient(ctx context.Context, userID string, ingredientID int64) ([]Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		JOIN recipe_ingredients ri ON ri.recipe_id = r.id
		WHERE r.user_id = ? AND ri.ingredient_id = ?
		ORDER BY r.name COLLATE NOCASE`,
		userID, ingredientID)
}

// ListByCookingTime returns the recipes that take at most maxMinutes to cook.
func (r *Repository) ListByCookingTime(ctx context.Context, userID string, maxMinutes int) ([]Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		WHERE r.user_id = ? AND r.cooking_time_minutes <= ?
		ORDER BY r.cooking_time_minutes, r.name COLLATE NOCASE`,
		userID, maxMinutes)
}

// FindActive returns the user's active recipes.
func (r *Repository) FindActive(ctx context.Context, userID string) ([]Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		WHERE r.user_id = ? AND r.active = 1
		ORDER BY r.id`,
		userID)
}

// Count returns the number of recipes a user owns.
func (r *Repository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return n, nil
}

// Delete removes a recipe and its ingredient links.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) queryMany(ctx context.Context, query string, args ...any) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, *rec)
	}
	return recipes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s scanner) (*Recipe, error) {
	var (
		id                   int64
		userID, data         string
		active               bool
		createdAt, updatedAt string
	)
	if err := s.Scan(&id, &userID, &active, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var rec Recipe
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON for ID %d: %w", id, err)
	}
	rec.ID = id
	rec.UserID = userID
	rec.Active = active

	var err error
	if rec.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func checkIngredients(ctx context.Context, tx *sql.Tx, userID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ingredients WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check recipe ingredients: %w", err)
	}
	if n != len(ids) {
		return ErrUnknownIngredient
	}
	return nil
}

func replaceLinks(ctx context.Context, tx *sql.Tx, recipeID int64, ingredientIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, recipeID); err != nil {
		return fmt.Errorf("failed to clear recipe ingredients: %w", err)
	}
	for _, ingID := range ingredientIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id) VALUES (?, ?)`, recipeID, ingID); err != nil {
			return fmt.Errorf("failed to link recipe ingredient: %w", err)
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
