package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xelth-com/loci/internal/config"
)

// ErrImproperlyConfigured is returned by the startup health check in strict mode
var ErrImproperlyConfigured = errors.New("Geocoding service is experiencing issues or is not properly configured")

// Point is a geocoded coordinate
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Provider talks to one external geocoding service.
// A nil result with a nil error means the service found nothing; errors are retried.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Point, error)
	// Reverse returns candidate addresses, most relevant first
	Reverse(ctx context.Context, lat, lng float64) ([]string, error)
}

// NewProvider selects a provider by name, case-insensitively
func NewProvider(cfg config.GeocodeConfig) (Provider, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	switch strings.ToLower(cfg.Provider) {
	case "", "arcgis":
		return NewArcGIS(client, cfg.APIKey), nil
	case "nominatim":
		return NewNominatim(client, cfg.UserAgent), nil
	}
	return nil, fmt.Errorf("%w: unknown geocoder %q", ErrImproperlyConfigured, cfg.Provider)
}

// New builds the retrying Geocoder described by cfg
func New(cfg config.GeocodeConfig) (*Geocoder, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewGeocoder(p, cfg.Retries, cfg.FailureDelay), nil
}

// statusError reports a non-2xx answer from a provider
type statusError struct {
	provider string
	status   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.provider, e.status)
}
