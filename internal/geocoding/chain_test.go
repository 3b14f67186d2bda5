package geocoding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/geometrics"
)

type stubProvider struct {
	name      string
	candidate *Candidate
	err       error
	calls     int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Geocode(_ context.Context, _ string) (*Candidate, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.candidate, nil
}

type stubCache struct {
	entries   map[string]*GeocodeResult
	gets      int
	puts      int
	evictions int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*GeocodeResult)}
}

func (c *stubCache) Get(_ context.Context, address string) (*GeocodeResult, bool) {
	c.gets++
	result, ok := c.entries[strings.ToLower(address)]
	if !ok {
		return nil, false
	}
	copied := *result
	return &copied, true
}

func (c *stubCache) Put(_ context.Context, address string, result *GeocodeResult) {
	c.puts++
	copied := *result
	c.entries[strings.ToLower(address)] = &copied
}

func (c *stubCache) EvictIfOverLimits(_ context.Context) int {
	c.evictions++
	return 0
}

func testChain(providers []Provider, cache Cache, recorder *geometrics.Recorder) *Chain {
	cfg := ChainConfig{MaxRetries: 3, BaseDelay: time.Millisecond}
	return NewChain(providers, cache, recorder, cfg, zap.NewNop())
}

func TestChainRejectsEmptyAddress(t *testing.T) {
	provider := &stubProvider{name: "google", candidate: &Candidate{Latitude: 1, Longitude: 1}}
	cache := newStubCache()
	chain := testChain([]Provider{provider}, cache, nil)

	result := chain.Geocode(context.Background(), "   ", "")
	if result.Success {
		t.Fatal("expected failure for empty address")
	}
	if result.ErrorType != ErrTypeEmptyInput {
		t.Fatalf("expected %s, got %s", ErrTypeEmptyInput, result.ErrorType)
	}
	if provider.calls != 0 {
		t.Fatalf("provider should not be called, got %d calls", provider.calls)
	}
	if cache.gets != 0 {
		t.Fatalf("cache should not be consulted, got %d gets", cache.gets)
	}
}

func TestChainRejectsShortAddress(t *testing.T) {
	provider := &stubProvider{name: "google", candidate: &Candidate{Latitude: 1, Longitude: 1}}
	cache := newStubCache()
	chain := testChain([]Provider{provider}, cache, nil)

	result := chain.Geocode(context.Background(), " abc ", "")
	if result.ErrorType != ErrTypeAddressTooShort {
		t.Fatalf("expected %s, got %s", ErrTypeAddressTooShort, result.ErrorType)
	}
	if provider.calls != 0 || cache.gets != 0 {
		t.Fatalf("short address must short-circuit, provider=%d gets=%d", provider.calls, cache.gets)
	}
}

func TestChainSuccessRoundsCoordinates(t *testing.T) {
	provider := &stubProvider{
		name: "google",
		candidate: &Candidate{
			Latitude:         40.71284567,
			Longitude:        -74.00601239,
			FormattedAddress: "123 Main St, New York, NY",
		},
	}
	recorder := geometrics.NewRecorder()
	chain := testChain([]Provider{provider}, newStubCache(), recorder)

	result := chain.Geocode(context.Background(), "123 Main St, New York", "")
	if !result.Success {
		t.Fatalf("expected success, got %s: %s", result.ErrorType, result.Error)
	}
	if result.Latitude != 40.712846 {
		t.Fatalf("expected rounded latitude 40.712846, got %f", result.Latitude)
	}
	if result.Longitude != -74.006012 {
		t.Fatalf("expected rounded longitude -74.006012, got %f", result.Longitude)
	}
	if result.Provider != "google" {
		t.Fatalf("expected provider google, got %s", result.Provider)
	}
	if result.CacheHit {
		t.Fatal("first resolution must not be a cache hit")
	}

	snap := recorder.Snapshot()
	if snap.TotalOperations != 1 || snap.SuccessRate != 1 {
		t.Fatalf("expected one successful operation, got %+v", snap)
	}
}

func TestChainServesSecondCallFromCache(t *testing.T) {
	provider := &stubProvider{name: "google", candidate: &Candidate{Latitude: 40.7128, Longitude: -74.0060}}
	cache := newStubCache()
	chain := testChain([]Provider{provider}, cache, nil)

	first := chain.Geocode(context.Background(), "123 Main St", "")
	if !first.Success {
		t.Fatalf("first call failed: %s", first.Error)
	}

	second := chain.Geocode(context.Background(), "123 Main St", "")
	if !second.Success {
		t.Fatalf("second call failed: %s", second.Error)
	}
	if !second.CacheHit {
		t.Fatal("second call must be served from cache")
	}
	if second.Latitude != first.Latitude || second.Longitude != first.Longitude {
		t.Fatalf("cached coordinates differ: (%f,%f) vs (%f,%f)",
			second.Latitude, second.Longitude, first.Latitude, first.Longitude)
	}
	if provider.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", provider.calls)
	}
}

func TestChainFailsOverAfterRetries(t *testing.T) {
	rateLimited := &stubProvider{
		name: "google",
		err:  &ProviderError{Provider: "google", Type: ErrTypeRateLimited, Retryable: true, Err: errors.New("429")},
	}
	fallback := &stubProvider{name: "nominatim", candidate: &Candidate{Latitude: 51.5074, Longitude: -0.1278}}
	recorder := geometrics.NewRecorder()
	chain := testChain([]Provider{rateLimited, fallback}, newStubCache(), recorder)

	result := chain.Geocode(context.Background(), "10 Downing Street, London", "")
	if !result.Success {
		t.Fatalf("expected fallback success, got %s: %s", result.ErrorType, result.Error)
	}
	if result.Provider != "nominatim" {
		t.Fatalf("expected nominatim result, got %s", result.Provider)
	}
	if rateLimited.calls != 3 {
		t.Fatalf("retryable error should exhaust max retries, got %d calls", rateLimited.calls)
	}

	snap := recorder.Snapshot()
	google, ok := snap.Providers["google"]
	if !ok {
		t.Fatal("expected google stats in snapshot")
	}
	if google.Errors[string(ErrTypeRateLimited)] != 1 {
		t.Fatalf("expected one rate_limited error recorded, got %+v", google.Errors)
	}
}

func TestChainDoesNotRetryNonRetryableErrors(t *testing.T) {
	denied := &stubProvider{
		name: "google",
		err:  &ProviderError{Provider: "google", Type: ErrTypeMissingAPIKey, Err: errors.New("request denied")},
	}
	fallback := &stubProvider{name: "nominatim", candidate: &Candidate{Latitude: 48.8566, Longitude: 2.3522}}
	chain := testChain([]Provider{denied, fallback}, newStubCache(), nil)

	result := chain.Geocode(context.Background(), "Champs-Elysees, Paris", "")
	if !result.Success {
		t.Fatalf("expected fallback success, got %s", result.Error)
	}
	if denied.calls != 1 {
		t.Fatalf("non-retryable error must not be retried, got %d calls", denied.calls)
	}
}

func TestChainRejectsZeroCoordinates(t *testing.T) {
	nullIsland := &stubProvider{name: "google", candidate: &Candidate{Latitude: 0, Longitude: 0}}
	chain := testChain([]Provider{nullIsland}, newStubCache(), nil)

	result := chain.Geocode(context.Background(), "Nowhere In Particular", "")
	if result.Success {
		t.Fatal("null island coordinates must fail")
	}
	if result.ErrorType != ErrTypeAllProvidersFailed {
		t.Fatalf("expected %s, got %s", ErrTypeAllProvidersFailed, result.ErrorType)
	}
	if nullIsland.calls != 1 {
		t.Fatalf("invalid coordinates must not be retried, got %d calls", nullIsland.calls)
	}
}

func TestChainReportsAllProviderErrors(t *testing.T) {
	down := &stubProvider{
		name: "google",
		err:  &ProviderError{Provider: "google", Type: ErrTypeMissingAPIKey, Err: errors.New("denied")},
	}
	empty := &stubProvider{
		name: "nominatim",
		err:  &ProviderError{Provider: "nominatim", Type: ErrTypeNoResults, Err: errors.New("no match")},
	}
	chain := testChain([]Provider{down, empty}, newStubCache(), nil)

	result := chain.Geocode(context.Background(), "completely unresolvable address", "")
	if result.Success {
		t.Fatal("expected failure when every provider fails")
	}
	if result.ErrorType != ErrTypeAllProvidersFailed {
		t.Fatalf("expected %s, got %s", ErrTypeAllProvidersFailed, result.ErrorType)
	}
	if len(result.ProviderErrors) != 2 {
		t.Fatalf("expected per-provider errors for both providers, got %v", result.ProviderErrors)
	}
	if !strings.Contains(result.ProviderErrors["nominatim"], string(ErrTypeNoResults)) {
		t.Fatalf("expected nominatim no_results detail, got %q", result.ProviderErrors["nominatim"])
	}
}

func TestChainProviderHintRestrictsOrder(t *testing.T) {
	google := &stubProvider{name: "google", candidate: &Candidate{Latitude: 1, Longitude: 1}}
	nominatim := &stubProvider{name: "nominatim", candidate: &Candidate{Latitude: 2, Longitude: 2}}
	chain := testChain([]Provider{google, nominatim}, newStubCache(), nil)

	result := chain.Geocode(context.Background(), "Somewhere Specific 42", "Nominatim")
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if result.Provider != "nominatim" {
		t.Fatalf("hint must restrict to nominatim, got %s", result.Provider)
	}
	if google.calls != 0 {
		t.Fatalf("google must be skipped under hint, got %d calls", google.calls)
	}
}

func TestChainUnknownHintFallsBackToFullOrder(t *testing.T) {
	google := &stubProvider{name: "google", candidate: &Candidate{Latitude: 1, Longitude: 1}}
	chain := testChain([]Provider{google}, newStubCache(), nil)

	result := chain.Geocode(context.Background(), "Somewhere Specific 42", "opencage")
	if !result.Success || result.Provider != "google" {
		t.Fatalf("unknown hint must use the configured chain, got %+v", result)
	}
}
