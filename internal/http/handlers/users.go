package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/domain/user"
	"github.com/geocoder89/placeshub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UsersService interface {
	List(ctx context.Context) ([]user.User, error)
	Signup(ctx context.Context, req user.SignupRequest, imagePath string) (user.AuthResponse, error)
	Login(ctx context.Context, req user.LoginRequest) (user.AuthResponse, error)
}

type UsersHandler struct {
	users UsersService
}

func NewUsersHandler(users UsersService) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, readTimeout)
	defer cancel()

	users, err := h.users.List(cctx)
	if err != nil {
		fail(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"users": users})
}

// Signup expects the multipart form handled by middlewares.ImageUpload.
func (h *UsersHandler) Signup(ctx *gin.Context) {
	var req user.SignupRequest
	if !Bind(ctx, &req) {
		return
	}

	imagePath, ok := middlewares.UploadedPath(ctx)
	if !ok {
		fail(ctx, apperr.Validation(invalidInputs))
		return
	}

	cctx, cancel := requestContext(ctx, writeTimeout)
	defer cancel()

	res, err := h.users.Signup(cctx, req, imagePath)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, res)
}

func (h *UsersHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest
	if !Bind(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, writeTimeout)
	defer cancel()

	res, err := h.users.Login(cctx, req)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}
