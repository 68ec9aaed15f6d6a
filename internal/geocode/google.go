package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/domain/place"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

type GoogleConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Google calls the Google Geocoding API.
type Google struct {
	cfg    GoogleConfig
	client *http.Client
}

var _ Geocoder = (*Google)(nil)

// NewGoogle builds the client. A nil client gets one with cfg.Timeout.
func NewGoogle(cfg GoogleConfig, client *http.Client) *Google {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Google{cfg: cfg, client: client}
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *Google) Coordinates(ctx context.Context, address string) (place.Location, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return place.Location{}, apperr.Upstream(http.StatusInternalServerError, "Could not look up the address.", err)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return place.Location{}, apperr.Upstream(http.StatusBadGateway, "Could not look up the address.", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close geocoder response body", "err", err)
		}
	}()

	if res.StatusCode >= 400 {
		return place.Location{}, apperr.Upstream(http.StatusBadGateway, "Could not look up the address.",
			fmt.Errorf("geocoder http %d", res.StatusCode))
	}

	var body googleResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return place.Location{}, apperr.Upstream(http.StatusBadGateway, "Could not look up the address.", err)
	}

	if body.Status == "ZERO_RESULTS" || (body.Status == "OK" && len(body.Results) == 0) {
		return place.Location{}, apperr.Upstream(http.StatusUnprocessableEntity, "Could not find location for the specified address.", nil)
	}

	if body.Status != "OK" {
		return place.Location{}, apperr.Upstream(http.StatusBadGateway, "Could not look up the address.",
			fmt.Errorf("geocoder status %s: %s", body.Status, body.ErrorMessage))
	}

	loc := body.Results[0].Geometry.Location
	return place.Location{Lat: loc.Lat, Lng: loc.Lng}, nil
}
