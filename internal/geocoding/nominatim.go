package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// NominatimBaseURL is the public OpenStreetMap instance
const NominatimBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim queries an OpenStreetMap Nominatim server.
// The usage policy requires an identifying User-Agent.
type Nominatim struct {
	BaseURL   string
	UserAgent string
	client    *http.Client
}

// NewNominatim creates the provider
func NewNominatim(client *http.Client, userAgent string) *Nominatim {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if userAgent == "" {
		userAgent = "loci"
	}
	return &Nominatim{BaseURL: NominatimBaseURL, UserAgent: userAgent, client: client}
}

func (n *Nominatim) Name() string { return "Nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Geocode resolves address to the first search hit
func (n *Nominatim) Geocode(ctx context.Context, address string) (*Point, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	var places []nominatimPlace
	if err := n.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad latitude %q", places[0].Lat)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad longitude %q", places[0].Lon)
	}
	return &Point{Lat: lat, Lng: lng}, nil
}

// Reverse resolves a coordinate to the display name of the nearest object
func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) ([]string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "json")
	var place nominatimPlace
	if err := n.get(ctx, "/reverse", q, &place); err != nil {
		return nil, err
	}
	if place.Error != "" || place.DisplayName == "" {
		return nil, nil
	}
	return []string{place.DisplayName}, nil
}

func (n *Nominatim) get(ctx context.Context, path string, q url.Values, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{provider: n.Name(), status: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
