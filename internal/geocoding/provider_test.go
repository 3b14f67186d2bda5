package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func providerErrorType(t *testing.T, err error) (ErrorType, bool) {
	t.Helper()
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *ProviderError, got %T: %v", err, err)
	}
	return provErr.Type, provErr.Retryable
}

func TestGoogleProviderParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{
			"status": "OK",
			"results": [{
				"formatted_address": "123 Main St, New York, NY 10001, USA",
				"geometry": {"location": {"lat": 40.7127837, "lng": -74.0059413}}
			}]
		}`)
	}))
	defer server.Close()

	provider := NewGoogleProvider("test-key", time.Second)
	provider.APIURL = server.URL

	candidate, err := provider.Geocode(context.Background(), "123 Main St, New York")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate.Latitude != 40.7127837 || candidate.Longitude != -74.0059413 {
		t.Fatalf("unexpected coordinates: (%f, %f)", candidate.Latitude, candidate.Longitude)
	}
	if candidate.FormattedAddress != "123 Main St, New York, NY 10001, USA" {
		t.Fatalf("unexpected formatted address: %q", candidate.FormattedAddress)
	}
}

func TestGoogleProviderStatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		expectType    ErrorType
		expectRetries bool
	}{
		{
			name:       "zero results",
			body:       `{"status": "ZERO_RESULTS", "results": []}`,
			expectType: ErrTypeNoResults,
		},
		{
			name:          "over query limit",
			body:          `{"status": "OVER_QUERY_LIMIT"}`,
			expectType:    ErrTypeRateLimited,
			expectRetries: true,
		},
		{
			name:       "request denied",
			body:       `{"status": "REQUEST_DENIED", "error_message": "key invalid"}`,
			expectType: ErrTypeMissingAPIKey,
		},
		{
			name:       "unknown status",
			body:       `{"status": "WHO_KNOWS"}`,
			expectType: ErrTypeMalformedResponse,
		},
		{
			name:       "ok with empty results",
			body:       `{"status": "OK", "results": []}`,
			expectType: ErrTypeNoResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			provider := NewGoogleProvider("test-key", time.Second)
			provider.APIURL = server.URL

			_, err := provider.Geocode(context.Background(), "123 Main St")
			if err == nil {
				t.Fatal("expected an error")
			}
			errType, retryable := providerErrorType(t, err)
			if errType != tt.expectType {
				t.Fatalf("expected %s, got %s", tt.expectType, errType)
			}
			if retryable != tt.expectRetries {
				t.Fatalf("expected retryable=%v, got %v", tt.expectRetries, retryable)
			}
		})
	}
}

func TestGoogleProviderRequiresKey(t *testing.T) {
	provider := NewGoogleProvider("   ", time.Second)

	_, err := provider.Geocode(context.Background(), "123 Main St")
	if errType, _ := providerErrorType(t, err); errType != ErrTypeMissingAPIKey {
		t.Fatalf("expected %s, got %s", ErrTypeMissingAPIKey, errType)
	}
}

func TestNominatimProviderParsesStringCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("nominatim requests must carry a user agent")
		}
		fmt.Fprint(w, `[{"lat": "51.5073219", "lon": "-0.1276474", "display_name": "London, Greater London, England"}]`)
	}))
	defer server.Close()

	provider := NewNominatimProvider(time.Second)
	provider.APIURL = server.URL

	candidate, err := provider.Geocode(context.Background(), "London")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate.Latitude != 51.5073219 || candidate.Longitude != -0.1276474 {
		t.Fatalf("unexpected coordinates: (%f, %f)", candidate.Latitude, candidate.Longitude)
	}
}

func TestNominatimProviderEmptyAndMalformed(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		expectType ErrorType
	}{
		{name: "empty array", body: `[]`, expectType: ErrTypeNoResults},
		{name: "unparseable latitude", body: `[{"lat": "north", "lon": "0.1"}]`, expectType: ErrTypeMalformedResponse},
		{name: "not json", body: `<html>mirror offline</html>`, expectType: ErrTypeMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			provider := NewNominatimProvider(time.Second)
			provider.APIURL = server.URL

			_, err := provider.Geocode(context.Background(), "somewhere")
			if err == nil {
				t.Fatal("expected an error")
			}
			if errType, _ := providerErrorType(t, err); errType != tt.expectType {
				t.Fatalf("expected %s, got %s", tt.expectType, errType)
			}
		})
	}
}

func TestGetJSONStatusHandling(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		expectType    ErrorType
		expectRetries bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, expectType: ErrTypeRateLimited, expectRetries: true},
		{name: "unauthorized", status: http.StatusUnauthorized, expectType: ErrTypeMissingAPIKey},
		{name: "forbidden", status: http.StatusForbidden, expectType: ErrTypeMissingAPIKey},
		{name: "server error", status: http.StatusInternalServerError, expectType: ErrTypeConnection, expectRetries: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			var target map[string]any
			err := getJSON(context.Background(), server.Client(), "test", server.URL, nil, &target)
			if err == nil {
				t.Fatal("expected an error")
			}
			errType, retryable := providerErrorType(t, err)
			if errType != tt.expectType {
				t.Fatalf("expected %s, got %s", tt.expectType, errType)
			}
			if retryable != tt.expectRetries {
				t.Fatalf("expected retryable=%v, got %v", tt.expectRetries, retryable)
			}
		})
	}
}

func TestGetJSONClassifiesConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	var target map[string]any
	err := getJSON(context.Background(), &http.Client{Timeout: time.Second}, "test", server.URL, nil, &target)
	if err == nil {
		t.Fatal("expected an error against a closed server")
	}
	errType, retryable := providerErrorType(t, err)
	if errType != ErrTypeConnection {
		t.Fatalf("expected %s, got %s", ErrTypeConnection, errType)
	}
	if !retryable {
		t.Fatal("connection failures must be retryable")
	}
}
