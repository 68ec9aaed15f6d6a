package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGoogleServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20 W 34th St, New York", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestGoogleCoordinatesSuccess(t *testing.T) {
	t.Parallel()

	server := newGoogleServer(t, http.StatusOK, `{
		"status": "OK",
		"results": [{"geometry": {"location": {"lat": 40.7484405, "lng": -73.9856644}}}]
	}`)
	g := NewGoogle(GoogleConfig{APIKey: "test-key", BaseURL: server.URL}, server.Client())

	loc, err := g.Coordinates(context.Background(), "20 W 34th St, New York")
	require.NoError(t, err)
	assert.InDelta(t, 40.7484405, loc.Lat, 1e-9)
	assert.InDelta(t, -73.9856644, loc.Lng, 1e-9)
}

func TestGoogleCoordinatesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"zero results", http.StatusOK, `{"status": "ZERO_RESULTS", "results": []}`, http.StatusUnprocessableEntity},
		{"ok without results", http.StatusOK, `{"status": "OK", "results": []}`, http.StatusUnprocessableEntity},
		{"request denied", http.StatusOK, `{"status": "REQUEST_DENIED", "error_message": "bad key"}`, http.StatusBadGateway},
		{"http error", http.StatusInternalServerError, `oops`, http.StatusBadGateway},
		{"invalid json", http.StatusOK, `{not json`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newGoogleServer(t, tt.status, tt.body)
			g := NewGoogle(GoogleConfig{APIKey: "test-key", BaseURL: server.URL}, server.Client())

			_, err := g.Coordinates(context.Background(), "20 W 34th St, New York")
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
			assert.Equal(t, tt.wantStatus, apperr.StatusOf(err))
		})
	}
}

func TestGoogleTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	g := NewGoogle(GoogleConfig{APIKey: "test-key", BaseURL: url}, nil)

	_, err := g.Coordinates(context.Background(), "anywhere")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apperr.StatusOf(err))
}

func TestStatic(t *testing.T) {
	t.Parallel()

	loc, err := NewStatic().Coordinates(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, loc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewStatic().Coordinates(ctx, "whatever")
	assert.ErrorIs(t, err, context.Canceled)
}
