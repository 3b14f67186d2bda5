package geocoding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/geometrics"
	"github.com/tsucess/paeshift-backend-sub004/internal/logger"
	"github.com/tsucess/paeshift-backend-sub004/internal/utils"
)

// Cache is the short-circuit store consulted before providers are tried.
// It is satisfied by *geocache.Cache; every method absorbs backend
// failures internally.
type Cache interface {
	Get(ctx context.Context, address string) (*GeocodeResult, bool)
	Put(ctx context.Context, address string, result *GeocodeResult)
	EvictIfOverLimits(ctx context.Context) int
}

const (
	minAddressLength  = 5
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// ChainConfig tunes retry behavior. Provider order comes from the order
// in which providers are passed to NewChain.
type ChainConfig struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
}

// Chain tries providers in priority order with per-provider retries and
// exponential backoff, short-circuiting through the cache. A Geocode call
// never returns an error: failures are structured results.
type Chain struct {
	providers []Provider
	byName    map[string]Provider
	cache     Cache
	recorder  *geometrics.Recorder
	logger    *zap.Logger
	cfg       ChainConfig

	now func() time.Time
}

func NewChain(providers []Provider, cache Cache, recorder *geometrics.Recorder, cfg ChainConfig, log *zap.Logger) *Chain {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if log == nil {
		log = zap.NewNop()
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &Chain{
		providers: providers,
		byName:    byName,
		cache:     cache,
		recorder:  recorder,
		logger:    log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Geocode resolves an address. providerHint, when it names a configured
// provider, restricts the chain to that provider alone.
func (c *Chain) Geocode(ctx context.Context, address, providerHint string) *GeocodeResult {
	started := c.now()

	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return Failure(ErrTypeEmptyInput, "address is empty")
	}
	if len(trimmed) < minAddressLength {
		return Failure(ErrTypeAddressTooShort, fmt.Sprintf("address must be at least %d characters", minAddressLength))
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, trimmed); ok {
			cached.CacheHit = true
			cached.TotalTime = c.now().Sub(started).Seconds()
			c.record(geometrics.Operation{
				Provider: cached.Provider,
				Success:  true,
				CacheHit: true,
				Duration: cached.TotalTime,
			})
			return cached
		}
	}

	providerErrors := make(map[string]string)

	for _, provider := range c.order(providerHint) {
		result, provErr := c.tryProvider(ctx, provider, trimmed)
		if provErr == nil {
			result.TotalTime = c.now().Sub(started).Seconds()
			if c.cache != nil {
				c.cache.Put(ctx, trimmed, result)
				c.cache.EvictIfOverLimits(ctx)
			}
			c.record(geometrics.Operation{
				Provider: result.Provider,
				Success:  true,
				Duration: result.TotalTime,
			})
			return result
		}

		providerErrors[provider.Name()] = provErr.Error()
		c.record(geometrics.Operation{
			Provider:  provider.Name(),
			ErrorType: string(provErr.Type),
			Duration:  c.now().Sub(started).Seconds(),
		})
		c.logger.Debug("provider failed, moving to next",
			zap.String(logger.FieldProvider, provider.Name()),
			zap.String("error_type", string(provErr.Type)),
			zap.Error(provErr),
		)
	}

	total := c.now().Sub(started).Seconds()
	c.record(geometrics.Operation{
		ErrorType: string(ErrTypeAllProvidersFailed),
		Duration:  total,
	})
	c.logger.Warn("all geocoding providers failed",
		zap.String(logger.FieldAddress, utils.TruncateForLog(trimmed, 80)),
		zap.Any("provider_errors", providerErrors),
	)

	result := Failure(ErrTypeAllProvidersFailed, "all geocoding providers failed")
	result.ProviderErrors = providerErrors
	result.TotalTime = total
	return result
}

// order resolves the provider sequence for one call.
func (c *Chain) order(hint string) []Provider {
	if hint = strings.TrimSpace(strings.ToLower(hint)); hint != "" {
		if p, ok := c.byName[hint]; ok {
			return []Provider{p}
		}
	}
	return c.providers
}

// tryProvider attempts one provider with retries. Only retryable errors
// (timeouts, connection failures, rate limits) are retried; everything
// else surfaces immediately so the chain can advance.
func (c *Chain) tryProvider(ctx context.Context, provider Provider, address string) (*GeocodeResult, *ProviderError) {
	var lastErr *ProviderError

	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.cfg.BaseDelay * (1 << (attempt - 1))
			if err := utils.WaitFor(ctx, delay); err != nil {
				return nil, &ProviderError{Provider: provider.Name(), Type: ErrTypeTimeout, Err: err}
			}
			c.logger.Debug("retrying provider",
				zap.String(logger.FieldProvider, provider.Name()),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
			)
		}

		candidate, err := provider.Geocode(ctx, address)
		if err != nil {
			provErr, ok := err.(*ProviderError)
			if !ok {
				provErr = &ProviderError{Provider: provider.Name(), Type: ErrTypeConnection, Err: err}
			}
			lastErr = provErr
			if provErr.Retryable {
				continue
			}
			return nil, provErr
		}

		if errType, verr := ValidateCoordinates(candidate.Latitude, candidate.Longitude); verr != nil {
			return nil, &ProviderError{Provider: provider.Name(), Type: errType, Err: verr}
		}

		return &GeocodeResult{
			Success:          true,
			Latitude:         RoundCoordinate(candidate.Latitude),
			Longitude:        RoundCoordinate(candidate.Longitude),
			Provider:         provider.Name(),
			FormattedAddress: candidate.FormattedAddress,
		}, nil
	}

	return nil, lastErr
}

func (c *Chain) record(op geometrics.Operation) {
	if c.recorder == nil {
		return
	}
	c.recorder.Record(op)
}

// Metrics returns the recorder snapshot. Cache statistics live on the
// cache itself; callers combine the two views for monitoring output.
func (c *Chain) Metrics() geometrics.Snapshot {
	if c.recorder == nil {
		return geometrics.Snapshot{}
	}
	return c.recorder.Snapshot()
}
