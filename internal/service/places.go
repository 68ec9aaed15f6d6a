package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/domain/user"
	"github.com/google/uuid"
)

type PlaceStore interface {
	GetByID(ctx context.Context, id string) (place.Place, error)
	ListByCreator(ctx context.Context, creatorID string) ([]place.Place, error)
	UpdateDetails(ctx context.Context, id, title, description string) (place.Place, error)
}

type Geocoder interface {
	Coordinates(ctx context.Context, address string) (place.Location, error)
}

// ImageRemover deletes a stored upload by the path recorded on the place.
type ImageRemover interface {
	Remove(ctx context.Context, path string) error
}

type PlacesService struct {
	places PlaceStore
	users  UserStore
	coord  *Coordinator
	geo    Geocoder
	images ImageRemover
	log    *slog.Logger
}

func NewPlacesService(places PlaceStore, users UserStore, coord *Coordinator, geo Geocoder, images ImageRemover, log *slog.Logger) *PlacesService {
	if log == nil {
		log = slog.Default()
	}

	return &PlacesService{
		places: places,
		users:  users,
		coord:  coord,
		geo:    geo,
		images: images,
		log:    log,
	}
}

// sameID compares two ids as UUIDs so casing and formatting differences do not matter.
func sameID(a, b string) bool {
	ua, errA := uuid.Parse(a)
	ub, errB := uuid.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	return ua == ub
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *PlacesService) Get(ctx context.Context, id string) (place.Place, error) {
	if !validID(id) {
		return place.Place{}, apperr.NotFound("Could not find a place for the provided id.")
	}

	p, err := s.places.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			return place.Place{}, apperr.NotFound("Could not find a place for the provided id.")
		}
		return place.Place{}, apperr.Storage("Something went wrong, could not find a place.", err)
	}

	return p, nil
}

// ListByUser returns the user's places. An unknown user and a user without places both yield 404.
func (s *PlacesService) ListByUser(ctx context.Context, userID string) ([]place.Place, error) {
	notFound := apperr.NotFound("Could not find places for the provided user id.")

	if !validID(userID) {
		return nil, notFound
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, notFound
		}
		return nil, apperr.Storage("Fetching places failed, please try again later.", err)
	}

	places, err := s.places.ListByCreator(ctx, userID)
	if err != nil {
		return nil, apperr.Storage("Fetching places failed, please try again later.", err)
	}

	if len(places) == 0 {
		return nil, notFound
	}

	return places, nil
}

func (s *PlacesService) Create(ctx context.Context, req place.CreatePlaceRequest, imagePath, creatorID string) (place.Place, error) {
	loc, err := s.geo.Coordinates(ctx, req.Address)
	if err != nil {
		return place.Place{}, apperr.From(err)
	}

	if !validID(creatorID) {
		return place.Place{}, apperr.NotFound("Could not find user for provided id.")
	}

	if _, err := s.users.GetByID(ctx, creatorID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return place.Place{}, apperr.NotFound("Could not find user for provided id.")
		}
		return place.Place{}, apperr.Storage("Creating place failed, please try again.", err)
	}

	p := place.NewFromCreateRequest(req, loc, imagePath, creatorID)

	if err := s.coord.CreateOwned(ctx, p); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return place.Place{}, apperr.NotFound("Could not find user for provided id.")
		}
		return place.Place{}, apperr.Storage("Creating place failed, please try again.", err)
	}

	s.log.InfoContext(ctx, "place created", "place_id", p.ID, "creator_id", creatorID)

	return p, nil
}

func (s *PlacesService) Update(ctx context.Context, id string, req place.UpdatePlaceRequest, requesterID string) (place.Place, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return place.Place{}, err
	}

	if !sameID(p.CreatorID, requesterID) {
		return place.Place{}, apperr.Authorization("You are not allowed to edit this place.")
	}

	updated, err := s.places.UpdateDetails(ctx, p.ID, req.Title, req.Description)
	if err != nil {
		if errors.Is(err, place.ErrNotFound) {
			return place.Place{}, apperr.NotFound("Could not find a place for the provided id.")
		}
		return place.Place{}, apperr.Storage("Something went wrong, could not update place.", err)
	}

	return updated, nil
}

func (s *PlacesService) Delete(ctx context.Context, id, requesterID string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !sameID(p.CreatorID, requesterID) {
		return apperr.Authorization("You are not allowed to delete this place.")
	}

	if err := s.coord.DeleteOwned(ctx, p); err != nil {
		if errors.Is(err, place.ErrNotFound) {
			return apperr.NotFound("Could not find a place for the provided id.")
		}
		return apperr.Storage("Something went wrong, could not delete place.", err)
	}

	if s.images != nil && p.Image != "" {
		if err := s.images.Remove(ctx, p.Image); err != nil {
			s.log.WarnContext(ctx, "could not remove place image", "place_id", p.ID, "image", p.Image, "err", err)
		}
	}

	s.log.InfoContext(ctx, "place deleted", "place_id", p.ID)

	return nil
}
