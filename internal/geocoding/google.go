package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

const googleAPIURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleProvider geocodes through the Google Maps Geocoding API.
type GoogleProvider struct {
	apiKey     string
	HTTPClient *http.Client
	APIURL     string
}

func NewGoogleProvider(apiKey string, timeout time.Duration) *GoogleProvider {
	return &GoogleProvider{
		apiKey:     strings.TrimSpace(apiKey),
		HTTPClient: newHTTPClient(timeout),
		APIURL:     googleAPIURL,
	}
}

func (p *GoogleProvider) Name() string { return "google" }

type googleResult struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Candidate, error) {
	if p.apiKey == "" {
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeMissingAPIKey,
			Err:      fmt.Errorf("google api key is not configured"),
		}
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", p.apiKey)

	var payload map[string]interface{}
	if err := getJSON(ctx, p.HTTPClient, p.Name(), p.APIURL, q, &payload); err != nil {
		return nil, err
	}

	status, _ := payload["status"].(string)
	switch status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeNoResults,
			Err:      fmt.Errorf("no results for address"),
		}
	case "OVER_QUERY_LIMIT":
		return nil, &ProviderError{
			Provider:  p.Name(),
			Type:      ErrTypeRateLimited,
			Retryable: true,
			Err:       fmt.Errorf("query limit exceeded"),
		}
	case "REQUEST_DENIED":
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeMissingAPIKey,
			Err:      fmt.Errorf("request denied: %v", payload["error_message"]),
		}
	default:
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeMalformedResponse,
			Err:      fmt.Errorf("unexpected status %q", status),
		}
	}

	var results []googleResult
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &results,
		TagName:  "json",
	}
	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(payload["results"]); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Type: ErrTypeMalformedResponse, Err: err}
	}

	if len(results) == 0 {
		return nil, &ProviderError{
			Provider: p.Name(),
			Type:     ErrTypeNoResults,
			Err:      fmt.Errorf("empty results array"),
		}
	}

	first := results[0]
	return &Candidate{
		Latitude:         first.Geometry.Location.Lat,
		Longitude:        first.Geometry.Location.Lng,
		FormattedAddress: first.FormattedAddress,
	}, nil
}
