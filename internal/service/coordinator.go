package service

import (
	"context"
	"fmt"

	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/repo"
)

// Coordinator keeps places.creator and users.places in step. Both writes of a
// create or delete commit together or not at all.
type Coordinator struct {
	tx repo.Transactor
}

func NewCoordinator(tx repo.Transactor) *Coordinator {
	return &Coordinator{tx: tx}
}

func (c *Coordinator) CreateOwned(ctx context.Context, p place.Place) error {
	return c.tx.WithTransaction(ctx, func(ctx context.Context, tx repo.OwnershipTx) error {
		if err := tx.InsertPlace(ctx, p); err != nil {
			return fmt.Errorf("insert place: %w", err)
		}
		if err := tx.AttachPlace(ctx, p.CreatorID, p.ID); err != nil {
			return fmt.Errorf("attach place: %w", err)
		}
		return nil
	})
}

func (c *Coordinator) DeleteOwned(ctx context.Context, p place.Place) error {
	return c.tx.WithTransaction(ctx, func(ctx context.Context, tx repo.OwnershipTx) error {
		if err := tx.DeletePlace(ctx, p.ID); err != nil {
			return fmt.Errorf("delete place: %w", err)
		}
		if err := tx.DetachPlace(ctx, p.CreatorID, p.ID); err != nil {
			return fmt.Errorf("detach place: %w", err)
		}
		return nil
	})
}
