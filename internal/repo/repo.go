// Package repo holds the contracts shared by the postgres and memory stores.
package repo

import (
	"context"

	"github.com/geocoder89/placeshub/internal/domain/place"
)

// OwnershipTx is the set of writes that must land together when a place changes hands.
// It is only valid inside Transactor.WithTransaction.
type OwnershipTx interface {
	InsertPlace(ctx context.Context, p place.Place) error
	DeletePlace(ctx context.Context, placeID string) error
	// AttachPlace adds placeID to the user's owned set. Unknown users yield user.ErrNotFound.
	AttachPlace(ctx context.Context, userID, placeID string) error
	DetachPlace(ctx context.Context, userID, placeID string) error
}

// Transactor runs fn in one transaction: commit when fn returns nil, roll back otherwise.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx OwnershipTx) error) error
}
