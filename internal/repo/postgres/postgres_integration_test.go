package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/placeshub/internal/db"
	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/domain/user"
	"github.com/geocoder89/placeshub/internal/repo"
	"github.com/geocoder89/placeshub/internal/repo/postgres"
	"github.com/geocoder89/placeshub/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// The suite needs docker. Run it with PLACESHUB_INTEGRATION=1.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("PLACESHUB_INTEGRATION") != "1" || testing.Short() {
		t.Skip("set PLACESHUB_INTEGRATION=1 to run postgres integration tests")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("placeshub"),
		tcpostgres.WithUsername("places"),
		tcpostgres.WithPassword("places"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := db.NewPool(ctx, dsn, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool, "up"))
	return pool
}

func newUser(email string) user.User {
	now := time.Now().UTC()
	return user.User{
		ID:           uuid.NewString(),
		Name:         "Ada",
		Email:        email,
		PasswordHash: "$2a$04$notarealhashbutlongenoughxxxxxxxxxxxxxxxxxxxxxxxxxxxxx",
		Image:        "uploads/images/avatar.png",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newPlace(creatorID string) place.Place {
	return place.NewFromCreateRequest(place.CreatePlaceRequest{
		Title:       "Empire State Building",
		Description: "One of the most famous sky scrapers in the world!",
		Address:     "20 W 34th St, New York, NY 10001",
	}, place.Location{Lat: 40.7484474, Lng: -73.9871516}, "uploads/images/esb.png", creatorID)
}

type failAttach struct {
	repo.OwnershipTx
}

func (failAttach) AttachPlace(ctx context.Context, userID, placeID string) error {
	return errors.New("attach failed")
}

type failingTransactor struct {
	inner repo.Transactor
}

func (f failingTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repo.OwnershipTx) error) error {
	return f.inner.WithTransaction(ctx, func(ctx context.Context, tx repo.OwnershipTx) error {
		return fn(ctx, failAttach{OwnershipTx: tx})
	})
}

func TestPostgresStores(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	users := postgres.NewUsersRepo(pool, nil)
	places := postgres.NewPlacesRepo(pool, nil)
	tx := postgres.NewTransactor(pool, nil)
	coord := service.NewCoordinator(tx)

	owner := newUser("ada@example.com")
	require.NoError(t, users.Create(ctx, owner))

	t.Run("duplicate email", func(t *testing.T) {
		err := users.Create(ctx, newUser("ada@example.com"))
		assert.ErrorIs(t, err, user.ErrEmailTaken)
	})

	t.Run("new user has no places", func(t *testing.T) {
		got, err := users.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, got.ID)
		assert.Empty(t, got.PlaceIDs)
		assert.NotNil(t, got.PlaceIDs)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := users.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	var kept place.Place

	t.Run("create commits both writes", func(t *testing.T) {
		kept = newPlace(owner.ID)
		require.NoError(t, coord.CreateOwned(ctx, kept))

		got, err := places.GetByID(ctx, kept.ID)
		require.NoError(t, err)
		assert.Equal(t, kept.Title, got.Title)
		assert.InDelta(t, kept.Location.Lat, got.Location.Lat, 1e-9)

		u, err := users.GetByID(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{kept.ID}, u.PlaceIDs)
	})

	t.Run("failed attach rolls back the insert", func(t *testing.T) {
		p := newPlace(owner.ID)
		err := service.NewCoordinator(failingTransactor{inner: tx}).CreateOwned(ctx, p)
		require.Error(t, err)

		_, err = places.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, place.ErrNotFound)

		u, err := users.GetByID(ctx, owner.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{kept.ID}, u.PlaceIDs)
	})

	t.Run("update details", func(t *testing.T) {
		got, err := places.UpdateDetails(ctx, kept.ID, "Empire State", "Still very tall.")
		require.NoError(t, err)
		assert.Equal(t, "Empire State", got.Title)
		assert.Equal(t, kept.Address, got.Address)

		_, err = places.UpdateDetails(ctx, uuid.NewString(), "x", "hello")
		assert.ErrorIs(t, err, place.ErrNotFound)
	})

	t.Run("list by creator", func(t *testing.T) {
		list, err := places.ListByCreator(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, kept.ID, list[0].ID)
	})

	t.Run("delete removes both sides", func(t *testing.T) {
		require.NoError(t, coord.DeleteOwned(ctx, kept))

		_, err := places.GetByID(ctx, kept.ID)
		assert.ErrorIs(t, err, place.ErrNotFound)

		u, err := users.GetByID(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, u.PlaceIDs)
	})

	t.Run("delete of a missing place", func(t *testing.T) {
		err := coord.DeleteOwned(ctx, newPlace(owner.ID))
		assert.ErrorIs(t, err, place.ErrNotFound)
	})
}
