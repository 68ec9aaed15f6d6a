package place

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(req CreatePlaceRequest, loc Location, image, creatorID string) Place {
	now := time.Now().UTC()

	return Place{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Image:       image,
		Address:     req.Address,
		Location:    loc,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
