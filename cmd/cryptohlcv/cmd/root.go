package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cryptohlcv",
	Short: "Fetch recent crypto OHLCV candles with exchange-to-aggregator fallback",
	Long: `cryptohlcv retrieves the most recent N candles for a trading pair.

The exchange klines endpoint is tried first. When it fails, geo-blocks
included, the request falls back to the aggregator OHLC endpoint, which
reports no volume.`,
	SilenceUsage: true,
}

// Execute runs the root command with ctx so an interrupt aborts in-flight fetches.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
