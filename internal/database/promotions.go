package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const promotionColumns = `id, name, description, discount_type, discount_value, code,
	valid_from, valid_until, min_purchase, is_active, created_at`

func scanPromotion(row pgx.Row) (Promotion, error) {
	var p Promotion
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.DiscountType, &p.DiscountValue,
		&p.Code, &p.ValidFrom, &p.ValidUntil, &p.MinPurchase, &p.IsActive, &p.CreatedAt)
	return p, err
}

func (q *Queries) ListPromotions(ctx context.Context) ([]Promotion, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE is_active = true
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promotions []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}
	return promotions, rows.Err()
}

func (q *Queries) GetPromotion(ctx context.Context, id uuid.UUID) (Promotion, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE id = $1 AND is_active = true`, id)
	return scanPromotion(row)
}

func (q *Queries) GetPromotionByCode(ctx context.Context, code string) (Promotion, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+promotionColumns+` FROM promotions
		WHERE code = $1 AND is_active = true`, code)
	return scanPromotion(row)
}

type CreatePromotionParams struct {
	Name          string
	Description   string
	DiscountType  string
	DiscountValue pgtype.Numeric
	Code          pgtype.Text
	ValidFrom     time.Time
	ValidUntil    time.Time
	MinPurchase   pgtype.Numeric
}

func (q *Queries) CreatePromotion(ctx context.Context, arg CreatePromotionParams) (Promotion, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO promotions (name, description, discount_type, discount_value,
			code, valid_from, valid_until, min_purchase)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+promotionColumns,
		arg.Name, arg.Description, arg.DiscountType, arg.DiscountValue,
		arg.Code, arg.ValidFrom, arg.ValidUntil, arg.MinPurchase)
	return scanPromotion(row)
}

type UpdatePromotionParams struct {
	Name          string
	Description   string
	DiscountType  string
	DiscountValue pgtype.Numeric
	Code          pgtype.Text
	ValidFrom     time.Time
	ValidUntil    time.Time
	MinPurchase   pgtype.Numeric
	ID            uuid.UUID
}

func (q *Queries) UpdatePromotion(ctx context.Context, arg UpdatePromotionParams) (Promotion, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE promotions
		SET name = $1, description = $2, discount_type = $3, discount_value = $4,
			code = $5, valid_from = $6, valid_until = $7, min_purchase = $8
		WHERE id = $9 AND is_active = true
		RETURNING `+promotionColumns,
		arg.Name, arg.Description, arg.DiscountType, arg.DiscountValue,
		arg.Code, arg.ValidFrom, arg.ValidUntil, arg.MinPurchase, arg.ID)
	return scanPromotion(row)
}

func (q *Queries) SoftDeletePromotion(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE promotions
		SET is_active = false
		WHERE id = $1 AND is_active = true
		RETURNING id`, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}
