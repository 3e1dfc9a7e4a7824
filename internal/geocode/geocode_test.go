package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobility-sharing/backend/internal/domain"
)

func TestNominatimClient_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Granada", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"37.1773","lon":"-3.5986"}]`))
	}))
	defer srv.Close()

	got, err := NewNominatimClient(srv.URL, time.Second).Geocode(context.Background(), "Granada")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 37.1773, got.Latitude, 1e-9)
	assert.InDelta(t, -3.5986, got.Longitude, 1e-9)
}

func TestNominatimClient_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got, err := NewNominatimClient(srv.URL, time.Second).Geocode(context.Background(), "nowhere at all")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNominatimClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewNominatimClient(srv.URL, time.Second).Geocode(context.Background(), "Granada")

	assert.ErrorContains(t, err, "503")
}

// fakeKV stores values in a map and returns go-redis result types.
type fakeKV struct {
	data    map[string]string
	readErr error
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.readErr != nil {
		return redis.NewStringResult("", f.readErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

type countingGeocoder struct {
	calls  int
	result *domain.Coordinates
	err    error
}

func (g *countingGeocoder) Geocode(context.Context, string) (*domain.Coordinates, error) {
	g.calls++
	return g.result, g.err
}

func TestCache_HitAfterMiss(t *testing.T) {
	next := &countingGeocoder{result: &domain.Coordinates{Latitude: 40.4168, Longitude: -3.7038}}
	c := &Cache{next: next, rdb: &fakeKV{data: map[string]string{}}, ttl: time.Hour}
	ctx := context.Background()

	first, err := c.Geocode(ctx, "Madrid")
	require.NoError(t, err)
	second, err := c.Geocode(ctx, "  madrid ")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls, "normalised address should hit the cache")
	assert.Equal(t, first, second)
}

func TestCache_CachesNoMatch(t *testing.T) {
	next := &countingGeocoder{}
	c := &Cache{next: next, rdb: &fakeKV{data: map[string]string{}}, ttl: time.Hour}

	for range 2 {
		got, err := c.Geocode(context.Background(), "Atlantis")
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCache_RedisDownFallsThrough(t *testing.T) {
	next := &countingGeocoder{result: &domain.Coordinates{Latitude: 1, Longitude: 2}}
	c := &Cache{next: next, rdb: &fakeKV{data: map[string]string{}, readErr: errors.New("dial tcp: refused")}, ttl: time.Hour}

	got, err := c.Geocode(context.Background(), "Sevilla")

	require.NoError(t, err)
	assert.Equal(t, &domain.Coordinates{Latitude: 1, Longitude: 2}, got)
}

func TestCache_DoesNotCacheErrors(t *testing.T) {
	kv := &fakeKV{data: map[string]string{}}
	c := &Cache{next: &countingGeocoder{err: errors.New("timeout")}, rdb: kv, ttl: time.Hour}

	_, err := c.Geocode(context.Background(), "Sevilla")

	assert.Error(t, err)
	assert.Empty(t, kv.data)
}
