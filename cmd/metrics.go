package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/geocache"
	"github.com/tsucess/paeshift-backend-sub004/internal/geometrics"
	"github.com/tsucess/paeshift-backend-sub004/internal/logger"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print a geocoding metrics snapshot",
	Run: func(cmd *cobra.Command, _ []string) {
		metrics(cmd)
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}

func metrics(_ *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	cache := buildCache(config, zlog)
	recorder := geometrics.NewRecorder()
	chain := buildChain(config, cache, recorder, zlog)

	combined := struct {
		geometrics.Snapshot
		Cache geocache.Stats `json:"cache"`
	}{
		Snapshot: chain.Metrics(),
		Cache:    cache.Stats(ctx),
	}

	pretty, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		zlog.Fatal("encoding metrics snapshot", zap.Error(err))
	}
	fmt.Println(string(pretty))
}
