package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Variants ---

const variantColumns = `id, product_id, name, price, unit, is_active`

func scanVariant(row pgx.Row) (ProductVariant, error) {
	var v ProductVariant
	err := row.Scan(&v.ID, &v.ProductID, &v.Name, &v.Price, &v.Unit, &v.IsActive)
	return v, err
}

func (q *Queries) ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]ProductVariant, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+variantColumns+` FROM product_variants
		WHERE product_id = $1 AND is_active = true
		ORDER BY name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants []ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

type CreateVariantParams struct {
	ProductID uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Unit      pgtype.Text
}

func (q *Queries) CreateVariant(ctx context.Context, arg CreateVariantParams) (ProductVariant, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO product_variants (product_id, name, price, unit)
		VALUES ($1, $2, $3, $4)
		RETURNING `+variantColumns,
		arg.ProductID, arg.Name, arg.Price, arg.Unit)
	return scanVariant(row)
}

type UpdateVariantParams struct {
	Name      string
	Price     pgtype.Numeric
	Unit      pgtype.Text
	ID        uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) UpdateVariant(ctx context.Context, arg UpdateVariantParams) (ProductVariant, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE product_variants
		SET name = $1, price = $2, unit = $3
		WHERE id = $4 AND product_id = $5 AND is_active = true
		RETURNING `+variantColumns,
		arg.Name, arg.Price, arg.Unit, arg.ID, arg.ProductID)
	return scanVariant(row)
}

type SoftDeleteVariantParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) SoftDeleteVariant(ctx context.Context, arg SoftDeleteVariantParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE product_variants
		SET is_active = false
		WHERE id = $1 AND product_id = $2 AND is_active = true
		RETURNING id`, arg.ID, arg.ProductID)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

// --- Customization groups ---

const customizationColumns = `id, product_id, name, customization_type`

func scanCustomization(row pgx.Row) (ProductCustomization, error) {
	var c ProductCustomization
	err := row.Scan(&c.ID, &c.ProductID, &c.Name, &c.CustomizationType)
	return c, err
}

func (q *Queries) ListCustomizationsByProduct(ctx context.Context, productID uuid.UUID) ([]ProductCustomization, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+customizationColumns+` FROM product_customizations
		WHERE product_id = $1
		ORDER BY name`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customizations []ProductCustomization
	for rows.Next() {
		c, err := scanCustomization(rows)
		if err != nil {
			return nil, err
		}
		customizations = append(customizations, c)
	}
	return customizations, rows.Err()
}

type GetCustomizationParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) GetCustomization(ctx context.Context, arg GetCustomizationParams) (ProductCustomization, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+customizationColumns+` FROM product_customizations
		WHERE id = $1 AND product_id = $2`, arg.ID, arg.ProductID)
	return scanCustomization(row)
}

type CreateCustomizationParams struct {
	ProductID         uuid.UUID
	Name              string
	CustomizationType string
}

func (q *Queries) CreateCustomization(ctx context.Context, arg CreateCustomizationParams) (ProductCustomization, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO product_customizations (product_id, name, customization_type)
		VALUES ($1, $2, $3)
		RETURNING `+customizationColumns,
		arg.ProductID, arg.Name, arg.CustomizationType)
	return scanCustomization(row)
}

type UpdateCustomizationParams struct {
	Name              string
	CustomizationType string
	ID                uuid.UUID
	ProductID         uuid.UUID
}

func (q *Queries) UpdateCustomization(ctx context.Context, arg UpdateCustomizationParams) (ProductCustomization, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE product_customizations
		SET name = $1, customization_type = $2
		WHERE id = $3 AND product_id = $4
		RETURNING `+customizationColumns,
		arg.Name, arg.CustomizationType, arg.ID, arg.ProductID)
	return scanCustomization(row)
}

type DeleteCustomizationParams struct {
	ID        uuid.UUID
	ProductID uuid.UUID
}

// DeleteCustomization removes the group; its options go with it (FK cascade).
func (q *Queries) DeleteCustomization(ctx context.Context, arg DeleteCustomizationParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		DELETE FROM product_customizations
		WHERE id = $1 AND product_id = $2
		RETURNING id`, arg.ID, arg.ProductID)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

// --- Customization options ---

const optionColumns = `id, customization_id, name, price_modifier`

func scanOption(row pgx.Row) (CustomizationOption, error) {
	var o CustomizationOption
	err := row.Scan(&o.ID, &o.CustomizationID, &o.Name, &o.PriceModifier)
	return o, err
}

func (q *Queries) ListOptionsByCustomization(ctx context.Context, customizationID uuid.UUID) ([]CustomizationOption, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+optionColumns+` FROM customization_options
		WHERE customization_id = $1
		ORDER BY name`, customizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []CustomizationOption
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// ListOptionsByProduct returns every option of every customization group of
// the product, joined with the group's type. Used by the pricing engine.
func (q *Queries) ListOptionsByProduct(ctx context.Context, productID uuid.UUID) ([]OptionForOrderRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT o.id, o.customization_id, c.customization_type, o.name, o.price_modifier
		FROM customization_options o
		JOIN product_customizations c ON c.id = o.customization_id
		WHERE c.product_id = $1`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []OptionForOrderRow
	for rows.Next() {
		var o OptionForOrderRow
		if err := rows.Scan(&o.ID, &o.CustomizationID, &o.CustomizationType, &o.Name, &o.PriceModifier); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

type CreateOptionParams struct {
	CustomizationID uuid.UUID
	Name            string
	PriceModifier   pgtype.Numeric
}

func (q *Queries) CreateOption(ctx context.Context, arg CreateOptionParams) (CustomizationOption, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO customization_options (customization_id, name, price_modifier)
		VALUES ($1, $2, $3)
		RETURNING `+optionColumns,
		arg.CustomizationID, arg.Name, arg.PriceModifier)
	return scanOption(row)
}

type UpdateOptionParams struct {
	Name            string
	PriceModifier   pgtype.Numeric
	ID              uuid.UUID
	CustomizationID uuid.UUID
}

func (q *Queries) UpdateOption(ctx context.Context, arg UpdateOptionParams) (CustomizationOption, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE customization_options
		SET name = $1, price_modifier = $2
		WHERE id = $3 AND customization_id = $4
		RETURNING `+optionColumns,
		arg.Name, arg.PriceModifier, arg.ID, arg.CustomizationID)
	return scanOption(row)
}

type DeleteOptionParams struct {
	ID              uuid.UUID
	CustomizationID uuid.UUID
}

func (q *Queries) DeleteOption(ctx context.Context, arg DeleteOptionParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		DELETE FROM customization_options
		WHERE id = $1 AND customization_id = $2
		RETURNING id`, arg.ID, arg.CustomizationID)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
