package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tsucess/paeshift-backend-sub004/internal/logger"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the geocode cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print geocode cache statistics",
	Run: func(cmd *cobra.Command, _ []string) {
		cacheStats(cmd)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every geocode cache entry",
	Run: func(cmd *cobra.Command, _ []string) {
		cacheClear(cmd)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation")
}

func cacheStats(_ *cobra.Command) {
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
	stats := cache.Stats(ctx)

	pretty, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		zlog.Fatal("encoding cache stats", zap.Error(err))
	}
	fmt.Println(string(pretty))
}

func cacheClear(cmd *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	if !autoApprove {
		prompt := promptui.Select{
			Label: "Remove every cached geocode entry?",
			Items: []string{PromptYes, PromptNo},
		}
		_, answer, err := prompt.Run()
		if err != nil {
			zlog.Fatal("reading confirmation", zap.Error(err))
		}
		if answer != PromptYes {
			zlog.Info("cache clear aborted")
			return
		}
	}

	cache := buildCache(config, zlog)
	if err := cache.Clear(ctx); err != nil {
		zlog.Fatal("clearing the cache", zap.Error(err))
	}

	zlog.Info("cache cleared")
}
