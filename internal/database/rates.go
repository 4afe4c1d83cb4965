package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const rateColumns = `id, usd_to_bs, updated_at, updated_by`

func scanRate(row pgx.Row) (ExchangeRate, error) {
	var r ExchangeRate
	err := row.Scan(&r.ID, &r.UsdToBs, &r.UpdatedAt, &r.UpdatedBy)
	return r, err
}

// GetExchangeRate returns the single exchange-rate row.
func (q *Queries) GetExchangeRate(ctx context.Context) (ExchangeRate, error) {
	row := q.db.QueryRow(ctx, `
		SELECT ` + rateColumns + ` FROM exchange_rate
		ORDER BY updated_at DESC
		LIMIT 1`)
	return scanRate(row)
}

type UpdateExchangeRateParams struct {
	UsdToBs   pgtype.Numeric
	UpdatedBy pgtype.UUID
}

// UpdateExchangeRate upserts the single row. Last write wins; there is no
// version check (single-admin-editor assumption).
func (q *Queries) UpdateExchangeRate(ctx context.Context, arg UpdateExchangeRateParams) (ExchangeRate, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO exchange_rate (id, usd_to_bs, updated_at, updated_by)
		VALUES ('00000000-0000-0000-0000-000000000001', $1, now(), $2)
		ON CONFLICT (id) DO UPDATE
		SET usd_to_bs = EXCLUDED.usd_to_bs,
			updated_at = now(),
			updated_by = EXCLUDED.updated_by
		RETURNING `+rateColumns,
		arg.UsdToBs, arg.UpdatedBy)
	return scanRate(row)
}
