package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type PlacesService interface {
	Get(ctx context.Context, id string) (place.Place, error)
	ListByUser(ctx context.Context, userID string) ([]place.Place, error)
	Create(ctx context.Context, req place.CreatePlaceRequest, imagePath, creatorID string) (place.Place, error)
	Update(ctx context.Context, id string, req place.UpdatePlaceRequest, requesterID string) (place.Place, error)
	Delete(ctx context.Context, id, requesterID string) error
}

type PlacesHandler struct {
	places PlacesService
}

func NewPlacesHandler(places PlacesService) *PlacesHandler {
	return &PlacesHandler{places: places}
}

func (h *PlacesHandler) GetPlaceByID(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, readTimeout)
	defer cancel()

	p, err := h.places.Get(cctx, ctx.Param("pid"))
	if err != nil {
		fail(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"place": p})
}

func (h *PlacesHandler) ListPlacesByUser(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, readTimeout)
	defer cancel()

	places, err := h.places.ListByUser(cctx, ctx.Param("uid"))
	if err != nil {
		fail(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"places": places})
}

// CreatePlace expects the multipart form handled by middlewares.ImageUpload.
// The creator is always the authenticated user, whatever the form says.
func (h *PlacesHandler) CreatePlace(ctx *gin.Context) {
	var req place.CreatePlaceRequest
	if !Bind(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		fail(ctx, apperr.Authentication("Authentication failed!", nil))
		return
	}

	imagePath, ok := middlewares.UploadedPath(ctx)
	if !ok {
		fail(ctx, apperr.Validation(invalidInputs))
		return
	}

	cctx, cancel := requestContext(ctx, writeTimeout)
	defer cancel()

	p, err := h.places.Create(cctx, req, imagePath, userID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"place": p})
}

func (h *PlacesHandler) UpdatePlace(ctx *gin.Context) {
	var req place.UpdatePlaceRequest
	if !BindJSON(ctx, &req) {
		return
	}

	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		fail(ctx, apperr.Authentication("Authentication failed!", nil))
		return
	}

	cctx, cancel := requestContext(ctx, readTimeout)
	defer cancel()

	p, err := h.places.Update(cctx, ctx.Param("pid"), req, userID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"place": p})
}

func (h *PlacesHandler) DeletePlace(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		fail(ctx, apperr.Authentication("Authentication failed!", nil))
		return
	}

	cctx, cancel := requestContext(ctx, writeTimeout)
	defer cancel()

	if err := h.places.Delete(cctx, ctx.Param("pid"), userID); err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Deleted place."})
}
