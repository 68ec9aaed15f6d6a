package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	readTimeout  = 3 * time.Second
	writeTimeout = 10 * time.Second // covers bcrypt and the geocoder round trip
)

// requestContext bounds the request's own context so a slow store or provider cannot
// hold the handler past d, and a client that hangs up cancels the work.
func requestContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

// fail hands err to the error handler middleware.
func fail(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
