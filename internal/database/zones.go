package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const zoneColumns = `id, name, price, estimated_time, is_active`

func scanZone(row pgx.Row) (DeliveryZone, error) {
	var z DeliveryZone
	err := row.Scan(&z.ID, &z.Name, &z.Price, &z.EstimatedTime, &z.IsActive)
	return z, err
}

func (q *Queries) ListDeliveryZones(ctx context.Context) ([]DeliveryZone, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+zoneColumns+` FROM delivery_zones
		WHERE is_active = true
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []DeliveryZone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func (q *Queries) GetDeliveryZone(ctx context.Context, id uuid.UUID) (DeliveryZone, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+zoneColumns+` FROM delivery_zones
		WHERE id = $1 AND is_active = true`, id)
	return scanZone(row)
}

type CreateDeliveryZoneParams struct {
	Name          string
	Price         pgtype.Numeric
	EstimatedTime string
}

func (q *Queries) CreateDeliveryZone(ctx context.Context, arg CreateDeliveryZoneParams) (DeliveryZone, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO delivery_zones (name, price, estimated_time)
		VALUES ($1, $2, $3)
		RETURNING `+zoneColumns,
		arg.Name, arg.Price, arg.EstimatedTime)
	return scanZone(row)
}

type UpdateDeliveryZoneParams struct {
	Name          string
	Price         pgtype.Numeric
	EstimatedTime string
	ID            uuid.UUID
}

func (q *Queries) UpdateDeliveryZone(ctx context.Context, arg UpdateDeliveryZoneParams) (DeliveryZone, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE delivery_zones
		SET name = $1, price = $2, estimated_time = $3
		WHERE id = $4 AND is_active = true
		RETURNING `+zoneColumns,
		arg.Name, arg.Price, arg.EstimatedTime, arg.ID)
	return scanZone(row)
}

func (q *Queries) SoftDeleteDeliveryZone(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE delivery_zones
		SET is_active = false
		WHERE id = $1 AND is_active = true
		RETURNING id`, id)
	var out uuid.UUID
	err := row.Scan(&out)
	return out, err
}

// CountOrdersByZone counts orders referencing the zone. Historical orders
// keep a snapshot of the zone, but the reference guard still blocks deleting
// a zone that has ever been ordered against.
func (q *Queries) CountOrdersByZone(ctx context.Context, zoneID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE delivery_zone_id = $1`, zoneID).Scan(&n)
	return n, err
}
