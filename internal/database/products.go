package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, category_id, name, slug, description, image_url, base_price,
	stock, discount, is_combo, unit, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description,
		&p.ImageUrl, &p.BasePrice, &p.Stock, &p.Discount, &p.IsCombo,
		&p.Unit, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type ListProductsParams struct {
	CategoryID pgtype.UUID
	Search     pgtype.Text
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE is_active = true
		  AND ($1::uuid IS NULL OR category_id = $1)
		  AND ($2::text IS NULL OR name ILIKE '%' || $2 || '%')
		ORDER BY name`,
		arg.CategoryID, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE id = $1 AND is_active = true`, id)
	return scanProduct(row)
}

func (q *Queries) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE slug = $1 AND is_active = true`, slug)
	return scanProduct(row)
}

type CreateProductParams struct {
	CategoryID  uuid.UUID
	Name        string
	Slug        string
	Description pgtype.Text
	ImageUrl    pgtype.Text
	BasePrice   pgtype.Numeric
	Stock       int32
	Discount    int32
	IsCombo     bool
	Unit        pgtype.Text
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO products (category_id, name, slug, description, image_url,
			base_price, stock, discount, is_combo, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+productColumns,
		arg.CategoryID, arg.Name, arg.Slug, arg.Description, arg.ImageUrl,
		arg.BasePrice, arg.Stock, arg.Discount, arg.IsCombo, arg.Unit)
	return scanProduct(row)
}

type UpdateProductParams struct {
	CategoryID  uuid.UUID
	Name        string
	Slug        string
	Description pgtype.Text
	ImageUrl    pgtype.Text
	BasePrice   pgtype.Numeric
	Stock       int32
	Discount    int32
	IsCombo     bool
	Unit        pgtype.Text
	ID          uuid.UUID
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET category_id = $1, name = $2, slug = $3, description = $4, image_url = $5,
			base_price = $6, stock = $7, discount = $8, is_combo = $9, unit = $10,
			updated_at = now()
		WHERE id = $11 AND is_active = true
		RETURNING `+productColumns,
		arg.CategoryID, arg.Name, arg.Slug, arg.Description, arg.ImageUrl,
		arg.BasePrice, arg.Stock, arg.Discount, arg.IsCombo, arg.Unit, arg.ID)
	return scanProduct(row)
}

func (q *Queries) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE products
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING id`, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

func (q *Queries) CountLowStockProducts(ctx context.Context, threshold int32) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM products
		WHERE stock < $1 AND is_active = true`, threshold).Scan(&n)
	return n, err
}
