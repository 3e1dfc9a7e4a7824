package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/observability"
)

// Geocoder resolves an address to zero or one coordinate pair.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
}

// kv is the part of *redis.Client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// noMatch is cached for addresses the geocoder could not resolve so they are
// not looked up again until the entry expires.
const noMatch = "-"

// Cache memoizes another Geocoder in Redis. Redis failures degrade to a
// direct lookup.
type Cache struct {
	next Geocoder
	rdb  kv
	ttl  time.Duration
}

// NewCache wraps next with a Redis-backed cache whose entries live for ttl.
func NewCache(next Geocoder, rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{next: next, rdb: rdb, ttl: ttl}
}

func (c *Cache) Geocode(ctx context.Context, address string) (*domain.Coordinates, error) {
	key := cacheKey(address)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		if coords, ok := decode(cached); ok {
			observability.GeocodeLookups.WithLabelValues("hit").Inc()
			return coords, nil
		}
	case !errors.Is(err, redis.Nil):
		slog.WarnContext(ctx, "geocode cache read failed", "error", err)
	}

	coords, err := c.next.Geocode(ctx, address)
	if err != nil {
		observability.GeocodeLookups.WithLabelValues("error").Inc()
		return nil, err
	}
	observability.GeocodeLookups.WithLabelValues("miss").Inc()

	if err := c.rdb.Set(ctx, key, encode(coords), c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "geocode cache write failed", "error", err)
	}
	return coords, nil
}

func cacheKey(address string) string {
	return "geocode:" + strings.ToLower(strings.Join(strings.Fields(address), " "))
}

func encode(c *domain.Coordinates) string {
	if c == nil {
		return noMatch
	}
	return fmt.Sprintf("%s,%s",
		strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		strconv.FormatFloat(c.Longitude, 'f', -1, 64))
}

// decode parses a cached entry. ok is false for corrupt entries.
func decode(s string) (coords *domain.Coordinates, ok bool) {
	if s == noMatch {
		return nil, true
	}
	latS, lonS, found := strings.Cut(s, ",")
	if !found {
		return nil, false
	}
	lat, err1 := strconv.ParseFloat(latS, 64)
	lon, err2 := strconv.ParseFloat(lonS, 64)
	if err1 != nil || err2 != nil {
		return nil, false
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lon}, true
}
