package geocode

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/geocoder89/placeshub/internal/apperr"
	"github.com/geocoder89/placeshub/internal/domain/place"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type ProtectedConfig struct {
	Timeout          time.Duration // hard timeout per lookup
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

// Protected bounds every lookup with a timeout and stops calling the provider
// after repeated failures until a cooldown has passed.
type Protected struct {
	inner Geocoder
	cfg   ProtectedConfig
	now   func() time.Time
	mu    sync.Mutex

	state string // "closed" | "open" | "half_open"

	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtected(inner Geocoder, cfg ProtectedConfig) *Protected {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &Protected{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: "closed",
	}
}

func (p *Protected) Coordinates(ctx context.Context, address string) (place.Location, error) {
	if !p.allowRequest() {
		return place.Location{}, apperr.Upstream(http.StatusServiceUnavailable,
			"Location lookup is temporarily unavailable, please try again later.", ErrCircuitOpen)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	loc, err := p.inner.Coordinates(lookupCtx, address)

	// the caller went away; that says nothing about the provider
	if ctx.Err() != nil {
		p.abandon()
	} else {
		p.afterRequest(err)
	}

	if err != nil && !apperr.IsKind(err, apperr.KindUpstream) {
		return place.Location{}, apperr.Upstream(http.StatusBadGateway, "Could not look up the address.", err)
	}

	return loc, err
}

// counts reports whether err says something about provider health. An address the
// provider simply does not know is a healthy answer.
func counts(err error) bool {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Status == http.StatusUnprocessableEntity {
		return false
	}
	return true
}

func (p *Protected) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case "closed":
		return true
	case "open":
		if p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
			p.state = "half_open"
			p.halfOpenInFlight = 1
			return true
		}
		return false
	case "half_open":
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

// abandon gives back a half-open slot without recording an outcome.
func (p *Protected) abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == "half_open" && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}
}

func (p *Protected) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == "half_open" && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil || !counts(err) {
		p.consecutiveFailures = 0
		p.state = "closed"
		return
	}

	p.consecutiveFailures++

	if p.state == "half_open" {
		p.state = "open"
		p.openedAt = p.now()
		return
	}

	if p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = "open"
		p.openedAt = p.now()
	}
}
