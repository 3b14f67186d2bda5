package cmd

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/geocache"
	"github.com/tsucess/paeshift-backend-sub004/internal/geocoding"
	"github.com/tsucess/paeshift-backend-sub004/internal/geometrics"
	"github.com/tsucess/paeshift-backend-sub004/internal/secrets"
)

// defaultProviderOrder is used when the config does not specify one.
var defaultProviderOrder = []string{"google", "nominatim", "mapbox"}

// buildCache wires the geocode cache against Redis when configured, the
// in-memory store otherwise.
func buildCache(config *Config, logger *zap.Logger) *geocache.Cache {
	cacheCfg := geocache.Config{}
	if config.Cache != nil {
		cacheCfg.MaxEntries = config.Cache.MaxEntries
		cacheCfg.MaxMemoryMB = config.Cache.MaxMemoryMB
		cacheCfg.Policy = geocache.Policy(config.Cache.Policy)
		if config.Cache.TTLDays > 0 {
			cacheCfg.TTL = time.Duration(config.Cache.TTLDays) * 24 * time.Hour
		}
	}

	var store geocache.Store
	if config.Redis != nil && config.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		store = geocache.NewRedisStore(rdb)
		logger.Info("using redis geocode cache", zap.String("addr", config.Redis.Addr))
	} else {
		store = geocache.NewMemoryStore()
		logger.Info("using in-memory geocode cache")
	}

	return geocache.New(store, cacheCfg, logger)
}

// buildChain assembles the provider chain from the configured order,
// skipping providers whose credentials cannot be resolved.
func buildChain(config *Config, cache *geocache.Cache, recorder *geometrics.Recorder, logger *zap.Logger) *geocoding.Chain {
	geoCfg := config.Geocoding
	if geoCfg == nil {
		geoCfg = &GeocodingConfig{}
	}

	timeout := time.Duration(geoCfg.TimeoutSeconds) * time.Second

	order := geoCfg.Providers
	if len(order) == 0 {
		order = defaultProviderOrder
	}

	var providers []geocoding.Provider
	for _, name := range order {
		switch name {
		case "google":
			key, err := resolveKey("google api key", geoCfg.Google)
			if err != nil {
				logger.Warn("skipping google provider", zap.Error(err))
				continue
			}
			providers = append(providers, geocoding.NewGoogleProvider(key, timeout))
		case "nominatim":
			providers = append(providers, geocoding.NewNominatimProvider(timeout))
		case "mapbox":
			key, err := resolveKey("mapbox access token", geoCfg.Mapbox)
			if err != nil {
				logger.Warn("skipping mapbox provider", zap.Error(err))
				continue
			}
			providers = append(providers, geocoding.NewMapboxProvider(key, timeout))
		default:
			logger.Warn("unknown geocoding provider in config", zap.String("provider", name))
		}
	}

	chainCfg := geocoding.ChainConfig{
		MaxRetries: geoCfg.MaxRetries,
		BaseDelay:  time.Duration(geoCfg.BaseDelayMS) * time.Millisecond,
	}

	return geocoding.NewChain(providers, cache, recorder, chainCfg, logger)
}

func resolveKey(name string, key *ProviderKey) (string, error) {
	src := secrets.Source{Name: name}
	if key != nil {
		src.Value = key.APIKey
		src.File = key.APIKeyFile
	}
	return secrets.Load(src)
}
