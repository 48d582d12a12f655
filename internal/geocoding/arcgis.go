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

// ArcGISBaseURL is the public World GeocodeServer
const ArcGISBaseURL = "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer"

// ArcGIS queries the Esri World Geocoding Service
type ArcGIS struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewArcGIS creates the provider. apiKey may be empty for anonymous use.
func NewArcGIS(client *http.Client, apiKey string) *ArcGIS {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ArcGIS{BaseURL: ArcGISBaseURL, APIKey: apiKey, client: client}
}

func (a *ArcGIS) Name() string { return "ArcGIS" }

type arcgisError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type arcgisCandidates struct {
	Candidates []struct {
		Address  string `json:"address"`
		Location struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"location"`
		Score float64 `json:"score"`
	} `json:"candidates"`
	Error *arcgisError `json:"error"`
}

type arcgisReverse struct {
	Address struct {
		MatchAddr string `json:"Match_addr"`
		LongLabel string `json:"LongLabel"`
	} `json:"address"`
	Error *arcgisError `json:"error"`
}

// Geocode resolves address to its best candidate
func (a *ArcGIS) Geocode(ctx context.Context, address string) (*Point, error) {
	q := url.Values{}
	q.Set("singleLine", address)
	q.Set("f", "json")
	q.Set("maxLocations", "1")
	var out arcgisCandidates
	if err := a.get(ctx, "/findAddressCandidates", q, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("arcgis: %d %s", out.Error.Code, out.Error.Message)
	}
	if len(out.Candidates) == 0 {
		return nil, nil
	}
	c := out.Candidates[0]
	return &Point{Lat: c.Location.Y, Lng: c.Location.X}, nil
}

// Reverse resolves a coordinate to an address
func (a *ArcGIS) Reverse(ctx context.Context, lat, lng float64) ([]string, error) {
	q := url.Values{}
	q.Set("location", strconv.FormatFloat(lng, 'f', -1, 64)+","+strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("f", "json")
	var out arcgisReverse
	if err := a.get(ctx, "/reverseGeocode", q, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		// 400 "Unable to find address" is a miss, not a failure
		if out.Error.Code == 400 {
			return nil, nil
		}
		return nil, fmt.Errorf("arcgis: %d %s", out.Error.Code, out.Error.Message)
	}
	addr := out.Address.LongLabel
	if addr == "" {
		addr = out.Address.MatchAddr
	}
	if addr == "" {
		return nil, nil
	}
	return []string{addr}, nil
}

func (a *ArcGIS) get(ctx context.Context, path string, q url.Values, dst interface{}) error {
	if a.APIKey != "" {
		q.Set("token", a.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{provider: a.Name(), status: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
