package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nftwatch/internal/alert"
	"nftwatch/internal/chain"
	"nftwatch/internal/command"
	"nftwatch/internal/config"
	"nftwatch/internal/explorer"
	"nftwatch/internal/model"
	"nftwatch/internal/nft"
	"nftwatch/internal/watcher"
)

type chainSource interface {
	watcher.LogSource
	watcher.BlockSource
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !common.IsHexAddress(cfg.Contract) {
		return fmt.Errorf("invalid contract address %q", cfg.Contract)
	}
	if cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	contract := common.HexToAddress(cfg.Contract)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var chainClient *chain.Client
	if cfg.RPCURL != "" {
		chainClient, err = chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
	}

	var topic0 []common.Hash
	if cfg.TransferOnly {
		transferTopic, err := nft.TransferTopic()
		if err != nil {
			return err
		}
		topic0 = append(topic0, transferTopic)
	}

	source, err := newChainSource(cfg, chainClient, topic0)
	if err != nil {
		return err
	}

	var collection model.CollectionMeta
	if chainClient != nil {
		collection, err = nft.FetchCollectionMeta(ctx, chainClient, contract, nft.NewCollectionMetaCache(), logger)
		if err != nil {
			logger.Warn("collection metadata unavailable", zap.Error(err))
		}
	}

	notifier := alert.MultiNotifier{
		&alert.LogNotifier{Logger: logger},
		alert.NewWriterNotifier(cmd.OutOrStdout()),
	}
	if cfg.AlertsOut != "" {
		notifier = append(notifier, alert.NewJSONLNotifier(cfg.AlertsOut))
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w := watcher.New(watcher.Config{
		Contract:   contract,
		Collection: collection,
		Interval:   cfg.Interval,
		BatchSize:  cfg.BatchSize,
		StartBlock: cfg.StartBlock,
	}, source, source, notifier, logger)

	logger.Info("watch start",
		zap.String("contract", cfg.Contract),
		zap.String("source", cfg.Source),
		zap.Duration("interval", cfg.Interval),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Uint64("start_block", cfg.StartBlock),
		zap.Bool("transfer_only", cfg.TransferOnly),
		zap.String("collection", collection.Name),
		zap.Bool("interactive", cfg.Interactive),
	)

	if cfg.Interactive {
		dispatcher := command.NewDispatcher(w, "", logger)
		return runInteractive(ctx, w, dispatcher, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-w.Done()
	return nil
}

func newChainSource(cfg config.WatchConfig, chainClient *chain.Client, topic0 []common.Hash) (chainSource, error) {
	switch cfg.Source {
	case config.SourceExplorer:
		explorerCfg := explorer.Config{
			URL:     cfg.APIURL,
			APIKey:  cfg.APIKey,
			ChainID: cfg.ChainID,
			Timeout: cfg.HTTPTimeout,
		}
		if len(topic0) > 0 {
			explorerCfg.Topic0 = &topic0[0]
		}
		return explorer.NewClient(explorerCfg), nil
	case config.SourceRPC:
		if chainClient == nil {
			return nil, fmt.Errorf("rpc url is required for the rpc source")
		}
		return chain.NewLogSource(chainClient, topic0...), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// runInteractive feeds stdin lines to the dispatcher until EOF or ctx is
// cancelled, then stops the watcher if it is still polling.
func runInteractive(ctx context.Context, w command.Controller, dispatcher *command.Dispatcher, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			stopWatcher(w)
			return nil
		case line, ok := <-lines:
			if !ok {
				stopWatcher(w)
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read commands: %w", err)
					}
				default:
				}
				return nil
			}
			reply, handled := dispatcher.Handle(ctx, line)
			if !handled {
				continue
			}
			if _, err := fmt.Fprintln(out, reply); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
		}
	}
}

// stopWatcher waits for a polling watcher to exit. An idle watcher is left as is.
func stopWatcher(w command.Controller) {
	_ = w.Stop()
}
