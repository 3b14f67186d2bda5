// Package geocoding resolves free-text addresses into coordinates using a
// chain of external providers with retries, caching and metrics.
package geocoding

import (
	"fmt"
	"math"
	"time"
)

// ErrorType classifies geocoding failures. The values are stable and are
// used as keys in the metrics error histograms.
type ErrorType string

const (
	ErrTypeEmptyInput         ErrorType = "empty_input"
	ErrTypeAddressTooShort    ErrorType = "address_too_short"
	ErrTypeMissingAPIKey      ErrorType = "missing_api_key"
	ErrTypeRateLimited        ErrorType = "rate_limited"
	ErrTypeNoResults          ErrorType = "no_results"
	ErrTypeInvalidCoordinates ErrorType = "invalid_coordinates"
	ErrTypeZeroCoordinates    ErrorType = "zero_coordinates"
	ErrTypeTimeout            ErrorType = "timeout"
	ErrTypeConnection         ErrorType = "connection_error"
	ErrTypeMalformedResponse  ErrorType = "malformed_response"
	ErrTypeAllProvidersFailed ErrorType = "all_providers_failed"
)

// GeocodeResult is the outcome of one geocode call. Failures are values,
// not errors: Success is false and ErrorType carries the classification.
type GeocodeResult struct {
	Success          bool      `json:"success"`
	Latitude         float64   `json:"latitude,omitempty"`
	Longitude        float64   `json:"longitude,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	FormattedAddress string    `json:"formatted_address,omitempty"`
	Error            string    `json:"error,omitempty"`
	ErrorType        ErrorType `json:"error_type,omitempty"`

	// ProviderErrors holds per-provider failure details when every
	// provider in the chain was exhausted.
	ProviderErrors map[string]string `json:"provider_errors,omitempty"`

	CacheHit     bool      `json:"cache_hit"`
	TotalTime    float64   `json:"total_time"`
	HitCount     int       `json:"hit_count"`
	CachedAt     time.Time `json:"cached_at,omitempty"`
	LastAccessed time.Time `json:"last_accessed,omitempty"`
}

// Failure builds a failed result with the given classification.
func Failure(errType ErrorType, message string) *GeocodeResult {
	return &GeocodeResult{
		Success:   false,
		Error:     message,
		ErrorType: errType,
	}
}

// ProviderError is a classified failure from a single provider attempt.
// Retryable errors are retried with backoff; the rest skip straight to the
// next provider in the chain.
type ProviderError struct {
	Provider  string
	Type      ErrorType
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Type, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Type)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// coordinatePrecision is the number of decimal places kept on resolved
// coordinates. Cache-key stability and distance math depend on it.
const coordinatePrecision = 1e6

// RoundCoordinate rounds to 6 decimal places, half away from zero.
func RoundCoordinate(v float64) float64 {
	if v == 0 {
		return 0
	}
	return math.Copysign(math.Floor(math.Abs(v)*coordinatePrecision+0.5)/coordinatePrecision, v)
}

// ValidateCoordinates rejects out-of-range pairs and the (0,0) point, which
// providers return for unresolvable addresses.
func ValidateCoordinates(lat, lon float64) (ErrorType, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrTypeInvalidCoordinates, fmt.Errorf("coordinates out of range: (%f, %f)", lat, lon)
	}
	if lat == 0 && lon == 0 {
		return ErrTypeZeroCoordinates, fmt.Errorf("provider returned null island coordinates")
	}
	return "", nil
}
