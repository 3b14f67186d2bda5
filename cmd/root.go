package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "paeshift-matcher"
)

type Config struct {
	Database  *DatabaseConfig  `mapstructure:"database"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Geocoding *GeocodingConfig `mapstructure:"geocoding"`
	Cache     *CacheConfig     `mapstructure:"cache"`
	Matching  *MatchingConfig  `mapstructure:"matching"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type GeocodingConfig struct {
	Providers      []string     `mapstructure:"providers"`
	TimeoutSeconds int          `mapstructure:"timeout-seconds"`
	MaxRetries     int          `mapstructure:"max-retries"`
	BaseDelayMS    int          `mapstructure:"base-delay-ms"`
	Google         *ProviderKey `mapstructure:"google"`
	Mapbox         *ProviderKey `mapstructure:"mapbox"`
}

type ProviderKey struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
}

type CacheConfig struct {
	TTLDays     int    `mapstructure:"ttl-days"`
	MaxEntries  int    `mapstructure:"max-entries"`
	MaxMemoryMB int    `mapstructure:"max-memory-mb"`
	Policy      string `mapstructure:"policy"`
}

type MatchingConfig struct {
	JobLimit  int `mapstructure:"job-limit"`
	UserLimit int `mapstructure:"user-limit"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "paeshift-matcher scores job/worker compatibility and geocodes job addresses",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("geocoding.google.api-key", "GOOGLE_MAPS_API_KEY"); err != nil {
		log.Fatalf("binding GOOGLE_MAPS_API_KEY environment variable: %v", err)
	}
	if err := viper.BindEnv("geocoding.mapbox.api-key", "MAPBOX_ACCESS_TOKEN"); err != nil {
		log.Fatalf("binding MAPBOX_ACCESS_TOKEN environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is "+app+".yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// A missing config file is fine: every command has workable defaults.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	return config, nil
}
