package forecast

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the entity sets backing the OData service.
type Repository interface {
	ListPointsOfSale(ctx context.Context) ([]PointOfSale, error)
	GetPointOfSale(ctx context.Context, uuid string) (PointOfSale, error)
	HistoryByUUID(ctx context.Context, uuid string) ([]PriceRecord, error)
	ModelsByGroupID(ctx context.Context, groupID string) ([]ModelArtifact, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const pointOfSaleColumns = `uuid,
	COALESCE(name, ''),
	COALESCE(brand, ''),
	COALESCE(street, ''),
	COALESCE(house_number, ''),
	COALESCE(post_code, ''),
	COALESCE(city, ''),
	latitude,
	longitude`

func (r *repository) ListPointsOfSale(ctx context.Context) ([]PointOfSale, error) {
	rows, err := r.db.Query(ctx, `SELECT `+pointOfSaleColumns+` FROM points_of_sales ORDER BY name, uuid`)
	if err != nil {
		return nil, fmt.Errorf("forecast: list points of sale: %w", err)
	}
	defer rows.Close()

	var out []PointOfSale
	for rows.Next() {
		pos, err := scanPointOfSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("forecast: list points of sale: %w", err)
	}
	return out, nil
}

func (r *repository) GetPointOfSale(ctx context.Context, uuid string) (PointOfSale, error) {
	row := r.db.QueryRow(ctx, `SELECT `+pointOfSaleColumns+` FROM points_of_sales WHERE uuid = $1`, uuid)
	pos, err := scanPointOfSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PointOfSale{}, ErrNotFound
		}
		return PointOfSale{}, err
	}
	return pos, nil
}

func (r *repository) HistoryByUUID(ctx context.Context, uuid string) ([]PriceRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT uuid, date, price, predicted_price
FROM history_forecast
WHERE uuid = $1
ORDER BY date`, uuid)
	if err != nil {
		return nil, fmt.Errorf("forecast: history for %s: %w", uuid, err)
	}
	defer rows.Close()

	var out []PriceRecord
	for rows.Next() {
		var rec PriceRecord
		if err := rows.Scan(&rec.UUID, &rec.Date, &rec.Price, &rec.PredictedPrice); err != nil {
			return nil, fmt.Errorf("forecast: scan history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("forecast: history for %s: %w", uuid, err)
	}
	return out, nil
}

func (r *repository) ModelsByGroupID(ctx context.Context, groupID string) ([]ModelArtifact, error) {
	rows, err := r.db.Query(ctx, `SELECT group_id, row_index, model_content
FROM model_hana_ml_cons_pal_massive_additive_model_analysis
WHERE group_id = $1
ORDER BY row_index`, groupID)
	if err != nil {
		return nil, fmt.Errorf("forecast: models for %s: %w", groupID, err)
	}
	defer rows.Close()

	var out []ModelArtifact
	for rows.Next() {
		var m ModelArtifact
		if err := rows.Scan(&m.GroupID, &m.RowIndex, &m.ModelContent); err != nil {
			return nil, fmt.Errorf("forecast: scan model: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("forecast: models for %s: %w", groupID, err)
	}
	return out, nil
}

func scanPointOfSale(row pgx.Row) (PointOfSale, error) {
	var pos PointOfSale
	err := row.Scan(
		&pos.UUID,
		&pos.Name,
		&pos.Brand,
		&pos.Street,
		&pos.HouseNumber,
		&pos.PostCode,
		&pos.City,
		&pos.Latitude,
		&pos.Longitude,
	)
	if err != nil {
		return PointOfSale{}, err
	}
	return pos, nil
}
