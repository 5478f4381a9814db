package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"nftwatch/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "nftwatch",
		Short:        "NFT transfer watcher",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a collection and alert on every transfer",
		RunE:  runWatch,
	}

	watchCmd.Flags().String("api-url", config.DefaultAPIURL, "explorer API URL")
	watchCmd.Flags().String("api-key", "", "explorer API key")
	watchCmd.Flags().Uint64("chain-id", 0, "chain id sent to multi-chain explorer APIs, 0 omits it")
	watchCmd.Flags().String("contract", config.DefaultContract, "NFT collection contract address")
	watchCmd.Flags().String("source", config.SourceExplorer, "log source (explorer, rpc)")
	watchCmd.Flags().String("rpc", "", "Ethereum RPC URL, used for the rpc source and collection metadata")
	watchCmd.Flags().Duration("interval", 30*time.Second, "polling interval")
	watchCmd.Flags().Uint64("batch-size", 5000, "blocks per log query")
	watchCmd.Flags().Uint64("start-block", 0, "first block to scan, 0 starts at the chain head")
	watchCmd.Flags().Bool("transfer-only", false, "only fetch logs whose topic0 is the Transfer event")
	watchCmd.Flags().String("alerts-out", "", "optional JSONL file receiving every alert")
	watchCmd.Flags().String("metrics-addr", "", "optional listen address for /metrics")
	watchCmd.Flags().Bool("interactive", false, "read /start, /stop, /status and /about from stdin")
	watchCmd.Flags().Duration("http-timeout", 15*time.Second, "explorer request timeout")
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(watchCmd)

	reconstructCmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Rebuild transfers from a file of raw logs",
		RunE:  runReconstruct,
	}

	reconstructCmd.Flags().String("in", "", "input raw logs (JSON array, explorer response, or JSONL)")
	reconstructCmd.Flags().String("out", "", "output transactions JSONL, empty writes to stdout")
	reconstructCmd.Flags().String("contract", "", "only use logs emitted by this address")
	reconstructCmd.Flags().Bool("sort", true, "sort transactions by timestamp")
	reconstructCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reconstructCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
