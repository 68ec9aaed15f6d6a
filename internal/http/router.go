package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/http/handlers"
	"github.com/geocoder89/placeshub/internal/http/middlewares"
	"github.com/geocoder89/placeshub/internal/imagestore"
	"github.com/geocoder89/placeshub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "placeshub-api"

// Deps is everything the router needs to serve the API.
type Deps struct {
	Env string

	Users  handlers.UsersService
	Places handlers.PlacesService
	Images imagestore.Store
	Tokens middlewares.TokenVerifier

	// Ping and ShuttingDown back /readyz. Nil means always ready.
	Ping         func(ctx context.Context) error
	ShuttingDown func() bool

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	MaxUploadBytes int64
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

func NewRouter(log *slog.Logger, d Deps) *gin.Engine {
	if d.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(middlewares.Recovery(log))
	r.Use(otelgin.Middleware(serviceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORS())
	r.Use(middlewares.ErrorHandler(log, d.Images))

	// health
	h := handlers.NewHealthHandler(d.Ping, d.ShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 500000
	}

	auth := middlewares.NewAuthMiddleware(d.Tokens)
	upload := middlewares.ImageUpload(d.Images, maxUpload)

	limit := d.AuthRateLimit
	if limit <= 0 {
		limit = 20
	}
	window := d.AuthRateWindow
	if window <= 0 {
		window = time.Minute
	}
	authLimiter := middlewares.NewRateLimiter(limit, window)

	usersHandler := handlers.NewUsersHandler(d.Users)
	placesHandler := handlers.NewPlacesHandler(d.Places)
	imagesHandler := handlers.NewImagesHandler(d.Images, maxUpload)

	r.GET("/"+imagestore.Prefix+"/:name", imagesHandler.ServeImage)

	api := r.Group("/api")
	{
		users := api.Group("/users")
		users.GET("", usersHandler.ListUsers)
		users.POST("/signup", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), upload, usersHandler.Signup)
		users.POST("/login", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP), middlewares.MaxBodyBytes(64<<10), usersHandler.Login)

		places := api.Group("/places")
		places.GET("/:pid", placesHandler.GetPlaceByID)
		places.GET("/user/:uid", placesHandler.ListPlacesByUser)

		// everything below requires a bearer token
		protected := places.Group("")
		protected.Use(auth.RequireAuth())
		protected.POST("", upload, placesHandler.CreatePlace)
		protected.PATCH("/:pid", middlewares.MaxBodyBytes(64<<10), middlewares.RequireJSON(), placesHandler.UpdatePlace)
		protected.DELETE("/:pid", placesHandler.DeletePlace)
	}

	r.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperr.NotFound("Could not find this route."))
		c.Abort()
	})

	return r
}

// NewServer wraps handler with the timeouts the API is served with.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
