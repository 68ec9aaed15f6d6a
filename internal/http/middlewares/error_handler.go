package middlewares

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/gin-gonic/gin"
)

type ImageRemover interface {
	Remove(ctx context.Context, path string) error
}

// ErrorHandler turns the last error recorded with c.Error into the JSON envelope.
// An image stored earlier in the same request is removed first, since nothing will reference it.
// The same happens when a later handler panics; Recovery still writes that response.
func ErrorHandler(log *slog.Logger, images ImageRemover) gin.HandlerFunc {
	return func(c *gin.Context) {
		returned := false
		defer func() {
			if !returned {
				removeUpload(c, log, images)
			}
		}()

		c.Next()
		returned = true

		if len(c.Errors) == 0 {
			return
		}

		ctx := c.Request.Context()
		err := c.Errors.Last().Err

		removeUpload(c, log, images)

		appErr := apperr.From(err)
		reqID, _ := c.Get(CtxRequestID)

		attrs := []any{
			"status", appErr.Status,
			"kind", string(appErr.Kind),
			"route", c.FullPath(),
			"request_id", reqID,
			"err", err,
		}
		if appErr.Status >= 500 {
			log.ErrorContext(ctx, "request failed", attrs...)
		} else {
			log.WarnContext(ctx, "request rejected", attrs...)
		}

		if c.Writer.Written() {
			return
		}

		WriteError(c, appErr)
	}
}

func removeUpload(c *gin.Context, log *slog.Logger, images ImageRemover) {
	path, ok := UploadedPath(c)
	if !ok || images == nil {
		return
	}

	ctx := c.Request.Context()
	if err := images.Remove(context.WithoutCancel(ctx), path); err != nil {
		log.WarnContext(ctx, "could not remove orphaned upload", "path", path, "err", err)
	}
}

// WriteError writes {"message": ..., "details": ...} with the error's status.
func WriteError(c *gin.Context, e *apperr.Error) {
	body := gin.H{"message": e.Message}
	if e.Details != nil {
		body["details"] = e.Details
	}
	c.AbortWithStatusJSON(e.Status, body)
}

// Recovery answers a panicking handler with the generic 500 envelope.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.ErrorContext(c.Request.Context(), "panic recovered", "panic", rec, "route", c.FullPath())
		WriteError(c, apperr.From(fmt.Errorf("panic: %v", rec)))
	})
}
