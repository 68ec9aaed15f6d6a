package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const placeColumns = `id::text, title, description, image, address, lat, lng, creator_id::text, created_at, updated_at`

type PlacesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPlacesRepo(pool *pgxpool.Pool, prom *observability.Prom) *PlacesRepo {
	return &PlacesRepo{pool: pool, prom: prom}
}

func scanPlace(row pgx.Row) (place.Place, error) {
	var p place.Place
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Image, &p.Address,
		&p.Location.Lat, &p.Location.Lng, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PlacesRepo) GetByID(ctx context.Context, id string) (place.Place, error) {
	var p place.Place

	err := r.prom.ObserveDB("places.get_by_id", func() error {
		var err error
		p, err = scanPlace(r.pool.QueryRow(ctx, `SELECT `+placeColumns+` FROM places WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return place.Place{}, place.ErrNotFound
		}
		return place.Place{}, err
	}

	return p, nil
}

func (r *PlacesRepo) ListByCreator(ctx context.Context, creatorID string) ([]place.Place, error) {
	out := make([]place.Place, 0)

	err := r.prom.ObserveDB("places.list_by_creator", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+placeColumns+` FROM places WHERE creator_id = $1 ORDER BY created_at ASC, id ASC`, creatorID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPlace(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// UpdateDetails rewrites title and description in a single statement.
func (r *PlacesRepo) UpdateDetails(ctx context.Context, id, title, description string) (place.Place, error) {
	var p place.Place

	err := r.prom.ObserveDB("places.update_details", func() error {
		var err error
		p, err = scanPlace(r.pool.QueryRow(ctx, `
			UPDATE places
			SET title = $2, description = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+placeColumns, id, title, description))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return place.Place{}, place.ErrNotFound
		}
		return place.Place{}, err
	}

	return p, nil
}
