package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelth-com/loci/internal/config"
)

type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	point     *Point
	addresses []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) attempt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return errors.New("service unavailable")
	}
	return nil
}

func (f *fakeProvider) Geocode(ctx context.Context, address string) (*Point, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return f.point, nil
}

func (f *fakeProvider) Reverse(ctx context.Context, lat, lng float64) ([]string, error) {
	if err := f.attempt(); err != nil {
		return nil, err
	}
	return f.addresses, nil
}

func TestGeocoderRetriesThenSucceeds(t *testing.T) {
	p := &fakeProvider{failFirst: 2, point: &Point{Lat: 41.89, Lng: 12.51}}
	g := NewGeocoder(p, 3, time.Millisecond)
	assert.Equal(t, "fake", g.Provider().Name())

	got := g.Geocode(context.Background(), "Via del Corso")
	require.NotNil(t, got)
	assert.Equal(t, 41.89, got.Lat)
	assert.Equal(t, 3, p.calls)
}

func TestGeocoderExhaustedReturnsEmpty(t *testing.T) {
	p := &fakeProvider{failFirst: 10, point: &Point{}}
	g := NewGeocoder(p, 3, time.Millisecond)

	assert.Nil(t, g.Geocode(context.Background(), "anywhere"))
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, "", g.Reverse(context.Background(), 1, 2))
}

func TestGeocoderMissIsNotRetried(t *testing.T) {
	p := &fakeProvider{}
	g := NewGeocoder(p, 3, time.Millisecond)

	assert.Nil(t, g.Geocode(context.Background(), "nowhere"))
	assert.Equal(t, 1, p.calls)
}

func TestGeocoderStopsOnCancel(t *testing.T) {
	p := &fakeProvider{failFirst: 10}
	g := NewGeocoder(p, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, g.Geocode(ctx, "x"))
	assert.Equal(t, 1, p.calls)
}

func TestReverseUsesFirstCandidate(t *testing.T) {
	p := &fakeProvider{addresses: []string{"Piazza Venezia, Roma", "Roma"}}
	g := NewGeocoder(p, 1, 0)
	assert.Equal(t, "Piazza Venezia, Roma", g.Reverse(context.Background(), 41.89, 12.48))
}

func TestHealthCheck(t *testing.T) {
	failing := NewGeocoder(&fakeProvider{}, 1, 0)
	assert.ErrorIs(t, HealthCheck(context.Background(), failing, true), ErrImproperlyConfigured)
	assert.NoError(t, HealthCheck(context.Background(), failing, false))

	ok := NewGeocoder(&fakeProvider{point: &Point{Lat: 55.75, Lng: 37.62}}, 1, 0)
	assert.NoError(t, HealthCheck(context.Background(), ok, true))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.GeocodeConfig{Provider: "ArcGIS"})
	require.NoError(t, err)
	assert.Equal(t, "ArcGIS", p.Name())

	p, err = NewProvider(config.GeocodeConfig{Provider: "nominatim"})
	require.NoError(t, err)
	assert.Equal(t, "Nominatim", p.Name())

	_, err = NewProvider(config.GeocodeConfig{Provider: "GoogleV3"})
	assert.ErrorIs(t, err, ErrImproperlyConfigured)
}

func TestArcGIS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/findAddressCandidates":
			if r.URL.Query().Get("singleLine") == "nowhere" {
				w.Write([]byte(`{"candidates":[]}`))
				return
			}
			w.Write([]byte(`{"candidates":[{"address":"Via del Corso, Roma","location":{"x":12.4801,"y":41.9009},"score":100}]}`))
		case "/reverseGeocode":
			assert.Equal(t, "12.48,41.9", r.URL.Query().Get("location"))
			w.Write([]byte(`{"address":{"Match_addr":"Via del Corso","LongLabel":"Via del Corso, 00186, Roma, ITA"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := NewArcGIS(srv.Client(), "")
	a.BaseURL = srv.URL
	ctx := context.Background()

	p, err := a.Geocode(ctx, "Via del Corso")
	require.NoError(t, err)
	assert.Equal(t, &Point{Lat: 41.9009, Lng: 12.4801}, p)

	p, err = a.Geocode(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, p)

	addrs, err := a.Reverse(ctx, 41.9, 12.48)
	require.NoError(t, err)
	assert.Equal(t, []string{"Via del Corso, 00186, Roma, ITA"}, addrs)
}

func TestNominatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "loci-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(`[{"lat":"41.8989","lon":"12.4768","display_name":"Roma"}]`))
		case "/reverse":
			if r.URL.Query().Get("lat") == "0" {
				w.Write([]byte(`{"error":"Unable to geocode"}`))
				return
			}
			w.Write([]byte(`{"display_name":"Piazza Venezia, Roma"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	n := NewNominatim(srv.Client(), "loci-test")
	n.BaseURL = srv.URL
	ctx := context.Background()

	p, err := n.Geocode(ctx, "Roma")
	require.NoError(t, err)
	assert.Equal(t, &Point{Lat: 41.8989, Lng: 12.4768}, p)

	addrs, err := n.Reverse(ctx, 41.89, 12.47)
	require.NoError(t, err)
	assert.Equal(t, []string{"Piazza Venezia, Roma"}, addrs)

	addrs, err = n.Reverse(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, addrs)

	n.BaseURL = srv.URL + "/down"
	_, err = n.Geocode(ctx, "Roma")
	assert.Error(t, err)
}
