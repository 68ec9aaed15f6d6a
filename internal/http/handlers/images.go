package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/imagestore"
	"github.com/gin-gonic/gin"
)

type ImageOpener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type ImagesHandler struct {
	images   ImageOpener
	maxBytes int64
}

func NewImagesHandler(images ImageOpener, maxBytes int64) *ImagesHandler {
	return &ImagesHandler{images: images, maxBytes: maxBytes}
}

// ServeImage streams a stored upload. The content type is sniffed from the bytes.
func (h *ImagesHandler) ServeImage(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, readTimeout)
	defer cancel()

	rc, err := h.images.Open(cctx, ctx.Param("name"))
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			fail(ctx, apperr.NotFound("Could not find this image."))
			return
		}
		fail(ctx, apperr.Storage("Could not read the image.", err))
		return
	}
	defer rc.Close()

	b, err := io.ReadAll(io.LimitReader(rc, h.maxBytes+1))
	if err != nil {
		fail(ctx, apperr.Storage("Could not read the image.", err))
		return
	}

	ctx.Header("Cache-Control", "public, max-age=86400, immutable")
	ctx.Data(http.StatusOK, mimetype.Detect(b).String(), b)
}
