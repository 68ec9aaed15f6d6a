// Package memory is an in-process store backing the service and HTTP test suites.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/domain/user"
	"github.com/geocoder89/placeshub/internal/repo"
)

type DB struct {
	mu     sync.RWMutex
	users  map[string]user.User
	places map[string]place.Place
}

func NewDB() *DB {
	return &DB{
		users:  make(map[string]user.User),
		places: make(map[string]place.Place),
	}
}

func (d *DB) Users() *UsersRepo       { return &UsersRepo{db: d} }
func (d *DB) Places() *PlacesRepo     { return &PlacesRepo{db: d} }
func (d *DB) Transactor() *Transactor { return &Transactor{db: d} }

func cloneUser(u user.User) user.User {
	u.PlaceIDs = slices.Clone(u.PlaceIDs)
	if u.PlaceIDs == nil {
		u.PlaceIDs = []string{}
	}
	return u
}

type UsersRepo struct {
	db *DB
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]user.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		out = append(out, cloneUser(u))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}

	r.db.users[u.ID] = cloneUser(u)
	return nil
}

type PlacesRepo struct {
	db *DB
}

func (r *PlacesRepo) GetByID(ctx context.Context, id string) (place.Place, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.places[id]
	if !ok {
		return place.Place{}, place.ErrNotFound
	}
	return p, nil
}

func (r *PlacesRepo) ListByCreator(ctx context.Context, creatorID string) ([]place.Place, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]place.Place, 0)
	for _, p := range r.db.places {
		if p.CreatorID == creatorID {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *PlacesRepo) UpdateDetails(ctx context.Context, id, title, description string) (place.Place, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.places[id]
	if !ok {
		return place.Place{}, place.ErrNotFound
	}

	p.Title = title
	p.Description = description
	p.UpdatedAt = time.Now().UTC()
	r.db.places[id] = p

	return p, nil
}

// Transactor stages writes on copies of both maps and swaps them in only when fn succeeds.
// The write lock is held for the whole of fn, so fn must only touch the store through tx.
type Transactor struct {
	db *DB
}

func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repo.OwnershipTx) error) error {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	staged := &stagedTx{
		users:  make(map[string]user.User, len(t.db.users)),
		places: make(map[string]place.Place, len(t.db.places)),
	}
	for id, u := range t.db.users {
		staged.users[id] = cloneUser(u)
	}
	for id, p := range t.db.places {
		staged.places[id] = p
	}

	if err := fn(ctx, staged); err != nil {
		return err
	}

	t.db.users = staged.users
	t.db.places = staged.places
	return nil
}

type stagedTx struct {
	users  map[string]user.User
	places map[string]place.Place
}

func (s *stagedTx) InsertPlace(ctx context.Context, p place.Place) error {
	if _, ok := s.users[p.CreatorID]; !ok {
		return user.ErrNotFound
	}
	s.places[p.ID] = p
	return nil
}

func (s *stagedTx) DeletePlace(ctx context.Context, placeID string) error {
	if _, ok := s.places[placeID]; !ok {
		return place.ErrNotFound
	}
	delete(s.places, placeID)
	return nil
}

func (s *stagedTx) AttachPlace(ctx context.Context, userID, placeID string) error {
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PlaceIDs = append(u.PlaceIDs, placeID)
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

func (s *stagedTx) DetachPlace(ctx context.Context, userID, placeID string) error {
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.PlaceIDs = slices.DeleteFunc(u.PlaceIDs, func(id string) bool { return id == placeID })
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}
