package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const mapboxAPIURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// MapboxProvider geocodes through the Mapbox Places API.
type MapboxProvider struct {
	accessToken string
	HTTPClient  *http.Client
	APIURL      string
}

func NewMapboxProvider(accessToken string, timeout time.Duration) *MapboxProvider {
	return &MapboxProvider{
		accessToken: strings.TrimSpace(accessToken),
		HTTPClient:  newHTTPClient(timeout),
		APIURL:      mapboxAPIURL,
	}
}

func (p *MapboxProvider) Name() string { return "mapbox" }

type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

func (p *MapboxProvider) Geocode(ctx context.Context, address string) (*Candidate, error) {
	if p.accessToken == "" {
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeMissingAPIKey,
			Err:      fmt.Errorf("mapbox access token is not configured"),
		}
	}

	endpoint := fmt.Sprintf("%s/%s.json", p.APIURL, url.PathEscape(address))
	q := url.Values{}
	q.Set("access_token", p.accessToken)
	q.Set("limit", "1")

	var payload mapboxResponse
	if err := getJSON(ctx, p.HTTPClient, p.Name(), endpoint, q, &payload); err != nil {
		return nil, err
	}

	if len(payload.Features) == 0 {
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeNoResults,
			Err:      fmt.Errorf("no features for address"),
		}
	}

	first := payload.Features[0]
	if len(first.Center) != 2 {
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeMalformedResponse,
			Err:      fmt.Errorf("feature center has %d elements", len(first.Center)),
		}
	}

	// Mapbox centers are [longitude, latitude].
	return &Candidate{
		Latitude:         first.Center[1],
		Longitude:        first.Center[0],
		FormattedAddress: first.PlaceName,
	}, nil
}
