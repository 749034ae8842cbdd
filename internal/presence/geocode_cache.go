package presence

import (
	"context"
	"fmt"
	"time"
)

const defaultGeocodeCacheTTL = 24 * time.Hour

type geocodeStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	PresenceGeocodeKey(coord string) string
}

// CachedGeocoder memoizes reverse geocoding per ~110 m grid cell so a
// pasabuyer ticking in place does not hit the Geocoding API every update.
type CachedGeocoder struct {
	inner Geocoder
	store geocodeStore
	ttl   time.Duration
}

func NewCachedGeocoder(inner Geocoder, store geocodeStore, ttl time.Duration) (*CachedGeocoder, error) {
	if inner == nil {
		return nil, fmt.Errorf("geocoder required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if ttl <= 0 {
		ttl = defaultGeocodeCacheTTL
	}
	return &CachedGeocoder{inner: inner, store: store, ttl: ttl}, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	key := c.store.PresenceGeocodeKey(gridCell(lat, lng))
	if cached, err := c.store.Get(ctx, key); err == nil && cached != "" {
		return cached, nil
	}

	address, err := c.inner.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	// A failed cache write only costs a repeat lookup.
	_ = c.store.Set(ctx, key, address, c.ttl)
	return address, nil
}

func gridCell(lat, lng float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lng)
}
