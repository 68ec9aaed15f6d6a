package place

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("place not found")

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Place struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Address     string    `json:"address"`
	Location    Location  `json:"location"`
	CreatorID   string    `json:"creator"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// CreatePlaceRequest is bound from the multipart form of POST /api/places.
type CreatePlaceRequest struct {
	Title       string `form:"title" json:"title" binding:"required"`
	Description string `form:"description" json:"description" binding:"required,min=5"`
	Address     string `form:"address" json:"address" binding:"required"`
}

func (r *CreatePlaceRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Address = strings.TrimSpace(r.Address)
}

// UpdatePlaceRequest only covers the fields a creator may edit.
type UpdatePlaceRequest struct {
	Title       string `form:"title" json:"title" binding:"required"`
	Description string `form:"description" json:"description" binding:"required,min=5"`
}

func (r *UpdatePlaceRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
}
