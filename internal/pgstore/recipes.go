package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"balanced-meal-planner/internal/recipe"

	"github.com/jackc/pgx/v5"
)

// RecipeRepository stores recipes as JSONB with searchable columns beside them.
type RecipeRepository struct {
	s *Store
}

const recipeColumns = `r.id, r.user_id, r.active, r.data, r.created_at, r.updated_at`

type recipeRow struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Active    bool      `db:"active"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row recipeRow) toRecipe() (recipe.Recipe, error) {
	var rec recipe.Recipe
	if err := json.Unmarshal(row.Data, &rec); err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to unmarshal recipe JSON for ID %d: %w", row.ID, err)
	}
	rec.ID = row.ID
	rec.UserID = row.UserID
	rec.Active = row.Active
	rec.CreatedAt = row.CreatedAt.UTC()
	rec.UpdatedAt = row.UpdatedAt.UTC()
	return rec, nil
}

// Create inserts a recipe after checking that every referenced ingredient
// belongs to the same user.
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		if err := checkIngredients(ctx, tx, rec.UserID, rec.IngredientIDs()); err != nil {
			return err
		}

		now := r.s.timestamp()
		rec.CreatedAt, rec.UpdatedAt = now, now
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
		}

		var id int64
		err = tx.QueryRow(ctx, `
			INSERT INTO recipes (user_id, name, category, cooking_time_minutes, active, data, created_at, updated_at)
			VALUES (@user_id, @name, @category, @minutes, @active, @data, @now, @now)
			RETURNING id`,
			pgx.NamedArgs{
				"user_id":  rec.UserID,
				"name":     rec.Name,
				"category": string(rec.Category),
				"minutes":  rec.CookingTimeMinutes,
				"active":   rec.Active,
				"data":     data,
				"now":      now,
			}).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return recipe.ErrDuplicateName
			}
			return fmt.Errorf("failed to insert recipe: %w", err)
		}
		if err := replaceLinks(ctx, tx, id, rec.IngredientIDs()); err != nil {
			return err
		}
		rec.ID = id
		return nil
	})
}

// Update overwrites an existing recipe and its ingredient links.
func (r *RecipeRepository) Update(ctx context.Context, rec *recipe.Recipe) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.s.pool, func(tx pgx.Tx) error {
		if err := checkIngredients(ctx, tx, rec.UserID, rec.IngredientIDs()); err != nil {
			return err
		}

		rec.UpdatedAt = r.s.timestamp()
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal recipe to JSON: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE recipes
			SET name = @name, category = @category, cooking_time_minutes = @minutes, active = @active,
			    data = @data, updated_at = @now
			WHERE id = @id AND user_id = @user_id`,
			pgx.NamedArgs{
				"id":       rec.ID,
				"user_id":  rec.UserID,
				"name":     rec.Name,
				"category": string(rec.Category),
				"minutes":  rec.CookingTimeMinutes,
				"active":   rec.Active,
				"data":     data,
				"now":      rec.UpdatedAt,
			})
		if err != nil {
			if isUniqueViolation(err) {
				return recipe.ErrDuplicateName
			}
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return recipe.ErrNotFound
		}
		return replaceLinks(ctx, tx, rec.ID, rec.IngredientIDs())
	})
}

// Get retrieves a recipe by its ID.
func (r *RecipeRepository) Get(ctx context.Context, id int64) (*recipe.Recipe, error) {
	rows, err := r.s.pool.Query(ctx, `SELECT `+recipeColumns+` FROM recipes r WHERE r.id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[recipeRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recipe.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}
	rec, err := row.toRecipe()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByIDs retrieves multiple recipes by their IDs. Unknown IDs are ignored.
func (r *RecipeRepository) GetByIDs(ctx context.Context, ids []int64) ([]recipe.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryMany(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.id = ANY(@ids) ORDER BY r.id`,
		pgx.NamedArgs{"ids": ids})
}

// List returns a user's recipes ordered by name. An empty category lists all of them.
func (r *RecipeRepository) List(ctx context.Context, userID string, category recipe.Category) ([]recipe.Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		WHERE r.user_id = @user_id AND (@category = '' OR r.category = @category)
		ORDER BY lower(r.name)`,
		pgx.NamedArgs{"user_id": userID, "category": string(category)})
}

// Search returns a user's recipes whose name contains term, ignoring case.
func (r *RecipeRepository) Search(ctx context.Context, userID, term string) ([]recipe.Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		WHERE r.user_id = @user_id AND r.name ILIKE @pattern
		ORDER BY lower(r.name)`,
		pgx.NamedArgs{"user_id": userID, "pattern": "%" + escapeLike(term) + "%"})
}

// ListByIngredient returns the recipes that reference an ingredient.
func (r *RecipeRepository) ListByIngredient(ctx context.Context, userID string, ingredientID int64) ([]recipe.Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		JOIN recipe_ingredients ri ON ri.recipe_id = r.id
		WHERE r.user_id = @user_id AND ri.ingredient_id = @ingredient_id
		ORDER BY lower(r.name)`,
		pgx.NamedArgs{"user_id": userID, "ingredient_id": ingredientID})
}

// ListByCookingTime returns the recipes that take at most maxMinutes to cook.
func (r *RecipeRepository) ListByCookingTime(ctx context.Context, userID string, maxMinutes int) ([]recipe.Recipe, error) {
	return r.queryMany(ctx, `
		SELECT `+recipeColumns+` FROM recipes r
		WHERE r.user_id = @user_id AND r.cooking_time_minutes <= @max
		ORDER BY r.cooking_time_minutes, lower(r.name)`,
		pgx.NamedArgs{"user_id": userID, "max": maxMinutes})
}

// FindActive returns the user's active recipes.
func (r *RecipeRepository) FindActive(ctx context.Context, userID string) ([]recipe.Recipe, error) {
	return r.queryMany(ctx,
		`SELECT `+recipeColumns+` FROM recipes r WHERE r.user_id = @user_id AND r.active ORDER BY r.id`,
		pgx.NamedArgs{"user_id": userID})
}

// Delete removes a recipe and its ingredient links.
func (r *RecipeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.s.pool.Exec(ctx, `DELETE FROM recipes WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

func (r *RecipeRepository) queryMany(ctx context.Context, sql string, args pgx.NamedArgs) ([]recipe.Recipe, error) {
	rows, err := r.s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[recipeRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan recipe: %w", err)
	}
	out := make([]recipe.Recipe, 0, len(found))
	for _, row := range found {
		rec, err := row.toRecipe()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func checkIngredients(ctx context.Context, tx pgx.Tx, userID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM ingredients WHERE user_id = @user_id AND id = ANY(@ids)`,
		pgx.NamedArgs{"user_id": userID, "ids": ids}).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check recipe ingredients: %w", err)
	}
	if n != len(ids) {
		return recipe.ErrUnknownIngredient
	}
	return nil
}

func replaceLinks(ctx context.Context, tx pgx.Tx, recipeID int64, ingredientIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = @id`, pgx.NamedArgs{"id": recipeID}); err != nil {
		return fmt.Errorf("failed to clear recipe ingredients: %w", err)
	}
	if len(ingredientIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO recipe_ingredients (recipe_id, ingredient_id)
		SELECT @id::bigint, unnest(@ids::bigint[])`,
		pgx.NamedArgs{"id": recipeID, "ids": ingredientIDs})
	if err != nil {
		return fmt.Errorf("failed to link recipe ingredients: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
