package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/placeshub/internal/db"
	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/domain/user"
	"github.com/geocoder89/placeshub/internal/observability"
	"github.com/geocoder89/placeshub/internal/repo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Transactor struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewTransactor(pool *pgxpool.Pool, prom *observability.Prom) *Transactor {
	return &Transactor{pool: pool, prom: prom}
}

func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repo.OwnershipTx) error) error {
	return db.WithTx(ctx, t.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &ownershipTx{tx: tx, prom: t.prom})
	})
}

type ownershipTx struct {
	tx   pgx.Tx
	prom *observability.Prom
}

func (o *ownershipTx) InsertPlace(ctx context.Context, p place.Place) error {
	return o.prom.ObserveDB("places.insert_tx", func() error {
		_, err := o.tx.Exec(ctx, `
			INSERT INTO places (id, title, description, address, lat, lng, image, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			p.ID, p.Title, p.Description, p.Address, p.Location.Lat, p.Location.Lng, p.Image, p.CreatorID, p.CreatedAt, p.UpdatedAt)
		return err
	})
}

func (o *ownershipTx) DeletePlace(ctx context.Context, placeID string) error {
	return o.prom.ObserveDB("places.delete_tx", func() error {
		tag, err := o.tx.Exec(ctx, `DELETE FROM places WHERE id = $1`, placeID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return place.ErrNotFound
		}
		return nil
	})
}

func (o *ownershipTx) AttachPlace(ctx context.Context, userID, placeID string) error {
	return o.updateOwned(ctx, "users.attach_place_tx",
		`UPDATE users SET place_ids = array_append(place_ids, $2::uuid), updated_at = NOW() WHERE id = $1`,
		userID, placeID)
}

func (o *ownershipTx) DetachPlace(ctx context.Context, userID, placeID string) error {
	return o.updateOwned(ctx, "users.detach_place_tx",
		`UPDATE users SET place_ids = array_remove(place_ids, $2::uuid), updated_at = NOW() WHERE id = $1`,
		userID, placeID)
}

func (o *ownershipTx) updateOwned(ctx context.Context, op, query, userID, placeID string) error {
	return o.prom.ObserveDB(op, func() error {
		tag, err := o.tx.Exec(ctx, query, userID, placeID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}
