package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const categoryColumns = `id, name, slug, description, image_url, is_active, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageUrl,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE is_active = true
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q *Queries) GetCategory(ctx context.Context, id uuid.UUID) (Category, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE id = $1 AND is_active = true`, id)
	return scanCategory(row)
}

type CreateCategoryParams struct {
	Name        string
	Slug        string
	Description pgtype.Text
	ImageUrl    pgtype.Text
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO categories (name, slug, description, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		arg.Name, arg.Slug, arg.Description, arg.ImageUrl)
	return scanCategory(row)
}

type UpdateCategoryParams struct {
	Name        string
	Slug        string
	Description pgtype.Text
	ImageUrl    pgtype.Text
	ID          uuid.UUID
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, image_url = $4, updated_at = now()
		WHERE id = $5 AND is_active = true
		RETURNING `+categoryColumns,
		arg.Name, arg.Slug, arg.Description, arg.ImageUrl, arg.ID)
	return scanCategory(row)
}

func (q *Queries) SoftDeleteCategory(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE categories
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING id`, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

// CountProductsByCategory counts active products still referencing the
// category. Used as the delete precondition.
func (q *Queries) CountProductsByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM products
		WHERE category_id = $1 AND is_active = true`, categoryID).Scan(&n)
	return n, err
}
