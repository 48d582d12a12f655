package geocoding

import (
	"context"
	"log"
	"time"

	"github.com/xelth-com/loci/internal/metrics"
)

// HealthCheckAddress is geocoded once at startup
const HealthCheckAddress = "Red Square"

// Geocoder wraps a Provider with bounded retries and a fixed delay between
// attempts. Callers never see provider errors: exhausting the retries yields
// an empty result, the same as a miss.
type Geocoder struct {
	provider Provider
	retries  int
	delay    time.Duration
}

// NewGeocoder creates a Geocoder making at most retries attempts per call
func NewGeocoder(p Provider, retries int, delay time.Duration) *Geocoder {
	if retries < 1 {
		retries = 1
	}
	return &Geocoder{provider: p, retries: retries, delay: delay}
}

// Provider returns the wrapped provider
func (g *Geocoder) Provider() Provider {
	return g.provider
}

// Geocode returns the coordinates of address, or nil
func (g *Geocoder) Geocode(ctx context.Context, address string) *Point {
	var result *Point
	g.do(ctx, "geocode", func(ctx context.Context) error {
		p, err := g.provider.Geocode(ctx, address)
		result = p
		return err
	})
	return result
}

// Reverse returns the most relevant address at lat/lng, or ""
func (g *Geocoder) Reverse(ctx context.Context, lat, lng float64) string {
	var result string
	g.do(ctx, "reverse", func(ctx context.Context) error {
		candidates, err := g.provider.Reverse(ctx, lat, lng)
		if err != nil {
			return err
		}
		if len(candidates) > 0 {
			result = candidates[0]
		}
		return nil
	})
	return result
}

func (g *Geocoder) do(ctx context.Context, op string, call func(ctx context.Context) error) {
	for attempt := 1; attempt <= g.retries; attempt++ {
		t0 := time.Now()
		metrics.GeocodeRequestsTotal.WithLabelValues(op).Inc()
		err := call(ctx)
		metrics.GeocodeDurationMs.WithLabelValues(op).Observe(float64(time.Since(t0).Milliseconds()))
		if err == nil {
			return
		}
		metrics.GeocodeFailTotal.WithLabelValues(op).Inc()
		log.Printf("⚠️ %s %s attempt %d/%d failed: %v", g.provider.Name(), op, attempt, g.retries, err)

		if attempt == g.retries {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(g.delay):
		}
	}
}

// HealthCheck geocodes a known address once. A miss is logged; in strict
// mode it is also returned as ErrImproperlyConfigured.
func HealthCheck(ctx context.Context, g *Geocoder, strict bool) error {
	if g.Geocode(ctx, HealthCheckAddress) != nil {
		log.Printf("✅ Geocoder %s is reachable", g.provider.Name())
		return nil
	}
	log.Printf("❌ %v", ErrImproperlyConfigured)
	if strict {
		return ErrImproperlyConfigured
	}
	return nil
}
