package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/gin-gonic/gin"
)

func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := c.GetHeader("Content-Type")
			// allow "application/json; charset=utf-8"
			if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
				_ = c.Error(apperr.New(apperr.KindUnsupportedMedia, http.StatusUnsupportedMediaType,
					"Content-Type must be application/json.", nil))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
