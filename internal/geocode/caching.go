package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/placeshub/internal/cache"
	"github.com/geocoder89/placeshub/internal/domain/place"
	"github.com/geocoder89/placeshub/internal/observability"
	"github.com/redis/go-redis/v9"
)

// Caching remembers resolved addresses in process and, when configured, in redis.
// Redis failures never fail a lookup.
type Caching struct {
	inner     Geocoder
	rdb       *redis.Client
	local     *cache.Cache[place.Location]
	ttl       time.Duration
	namespace string
	prom      *observability.Prom
	log       *slog.Logger
}

// NewCaching decorates inner. rdb may be nil. A non-positive ttl defaults to 24h.
func NewCaching(inner Geocoder, rdb *redis.Client, ttl time.Duration, prom *observability.Prom, log *slog.Logger) *Caching {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}

	return &Caching{
		inner:     inner,
		rdb:       rdb,
		local:     cache.New[place.Location](ttl),
		ttl:       ttl,
		namespace: "geocode",
		prom:      prom,
		log:       log,
	}
}

func (c *Caching) Coordinates(ctx context.Context, address string) (place.Location, error) {
	key := c.cacheKey(address)

	if loc, ok := c.local.Get(key); ok {
		c.prom.ObserveGeocode("cache", nil)
		return loc, nil
	}

	if c.rdb != nil {
		if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
			var loc place.Location
			if err := json.Unmarshal(b, &loc); err == nil {
				c.local.Set(key, loc)
				c.prom.ObserveGeocode("cache", nil)
				return loc, nil
			}
			_ = c.rdb.Del(ctx, key).Err()
		} else if err != nil && err != redis.Nil {
			c.log.WarnContext(ctx, "geocode cache read failed", "err", err)
		}
	}

	loc, err := c.inner.Coordinates(ctx, address)
	c.prom.ObserveGeocode("provider", err)
	if err != nil {
		return place.Location{}, err
	}

	c.local.Set(key, loc)

	if c.rdb != nil {
		if b, err := json.Marshal(loc); err == nil {
			if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
				c.log.WarnContext(ctx, "geocode cache write failed", "err", err)
			}
		}
	}

	return loc, nil
}

// cacheKey hashes the normalized address so arbitrary input makes a safe redis key.
func (c *Caching) cacheKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return c.namespace + ":" + hex.EncodeToString(sum[:])
}
