package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const nominatimAPIURL = "https://nominatim.openstreetmap.org/search"

// NominatimProvider geocodes through the public OSM Nominatim endpoint.
// It requires no API key but is aggressively rate limited.
type NominatimProvider struct {
	HTTPClient *http.Client
	APIURL     string
}

func NewNominatimProvider(timeout time.Duration) *NominatimProvider {
	return &NominatimProvider{
		HTTPClient: newHTTPClient(timeout),
		APIURL:     nominatimAPIURL,
	}
}

func (p *NominatimProvider) Name() string { return "nominatim" }

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Candidate, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	var results []nominatimResult
	if err := getJSON(ctx, p.HTTPClient, p.Name(), p.APIURL, q, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeNoResults,
			Err:      fmt.Errorf("no results for address"),
		}
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Type: ErrTypeMalformedResponse, Err: err}
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Type: ErrTypeMalformedResponse, Err: err}
	}

	return &Candidate{
		Latitude:         lat,
		Longitude:        lon,
		FormattedAddress: first.DisplayName,
	}, nil
}
