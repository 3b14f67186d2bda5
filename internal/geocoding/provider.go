package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout = 15 * time.Second
	// userAgent identifies this service to the providers. Nominatim in
	// particular rejects requests without one.
	userAgent = "paeshift-geocoder/1.0"
)

// Candidate is a raw, unrounded coordinate pair returned by a provider.
type Candidate struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
}

// Provider resolves a free-text address against one upstream service.
// Implementations return *ProviderError for every failure so the chain can
// classify it for retry and metrics purposes.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Candidate, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET request with the common headers and decodes the
// body into target. Transport failures come back as classified
// *ProviderError values attributed to the given provider.
func getJSON(ctx context.Context, client *http.Client, provider, rawURL string, q url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &ProviderError{Provider: provider, Type: ErrTypeConnection, Err: err}
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if q != nil {
		req.URL.RawQuery = q.Encode()
	}

	resp, err := client.Do(req)
	if err != nil {
		return classifyTransportError(provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &ProviderError{
			Provider:  provider,
			Type:      ErrTypeRateLimited,
			Retryable: true,
			Err:       fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &ProviderError{
			Provider: provider,
			Type:     ErrTypeMissingAPIKey,
			Err:      fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return &ProviderError{
			Provider:  provider,
			Type:      ErrTypeConnection,
			Retryable: true,
			Err:       fmt.Errorf("bad status: %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(provider, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return &ProviderError{Provider: provider, Type: ErrTypeMalformedResponse, Err: err}
	}

	return nil
}

func classifyTransportError(provider string, err error) *ProviderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ProviderError{Provider: provider, Type: ErrTypeTimeout, Retryable: true, Err: err}
	}
	return &ProviderError{Provider: provider, Type: ErrTypeConnection, Retryable: true, Err: err}
}
