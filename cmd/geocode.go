package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/geometrics"
	"github.com/tsucess/paeshift-backend-sub004/internal/logger"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode [address]",
	Short: "Resolve a free-text address to coordinates through the provider chain",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		geocode(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)

	geocodeCmd.Flags().StringP("provider", "p", "", "force a single provider (google, nominatim, mapbox)")
}

func geocode(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	address := strings.Join(args, " ")
	hint, _ := cmd.Flags().GetString("provider")

	cache := buildCache(config, zlog)
	recorder := geometrics.NewRecorder()
	chain := buildChain(config, cache, recorder, zlog)

	result := chain.Geocode(ctx, address, hint)

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		zlog.Fatal("encoding geocode result", zap.Error(err))
	}
	fmt.Println(string(pretty))

	if !result.Success {
		zlog.Warn("geocoding failed",
			zap.String(logger.FieldAddress, address),
			zap.String("error_type", string(result.ErrorType)),
		)
	}
}
