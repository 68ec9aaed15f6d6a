package middlewares

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/gin-gonic/gin"
)

// room for the text fields that travel in the same multipart body as the image
const formOverhead = 64 << 10

var allowedImageTypes = []string{"image/png", "image/jpeg"}

type ImageSaver interface {
	Save(ctx context.Context, ext, contentType string, r io.Reader) (string, error)
}

// ImageUpload accepts a single png/jpeg file in the "image" form field, no larger than
// maxBytes, stores it, and records its path for the handler and the error handler.
// The file type is decided by its content, not by the name or header the client sent.
func ImageUpload(store ImageSaver, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)

		fh, err := c.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				rejectUpload(c, "Image is too large.")
				return
			}
			_ = c.Error(apperr.Validation("Invalid inputs passed, please check your data.").
				WithDetails(gin.H{"fields": []gin.H{{"field": "image", "rule": "required", "message": "is required"}}}))
			c.Abort()
			return
		}

		if fh.Size > maxBytes {
			rejectUpload(c, "Image is too large.")
			return
		}

		f, err := fh.Open()
		if err != nil {
			_ = c.Error(apperr.Storage("Could not read the uploaded image.", err))
			c.Abort()
			return
		}
		defer f.Close()

		mtype, err := mimetype.DetectReader(f)
		if err != nil || !mimetype.EqualsAny(mtype.String(), allowedImageTypes...) {
			rejectUpload(c, "Invalid mime type!")
			return
		}

		if _, err := f.Seek(0, io.SeekStart); err != nil {
			_ = c.Error(apperr.Storage("Could not read the uploaded image.", err))
			c.Abort()
			return
		}

		path, err := store.Save(c.Request.Context(), mtype.Extension(), mtype.String(), f)
		if err != nil {
			_ = c.Error(apperr.Storage("Could not store the uploaded image.", err))
			c.Abort()
			return
		}

		c.Set(CtxUploadPath, path)
		c.Next()
	}
}

func rejectUpload(c *gin.Context, message string) {
	_ = c.Error(apperr.Validation(message))
	c.Abort()
}

// UploadedPath returns the stored path of the image saved for this request, if any.
func UploadedPath(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUploadPath)
	if !ok {
		return "", false
	}
	p, ok := v.(string)
	return p, ok && p != ""
}
