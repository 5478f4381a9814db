package watcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftwatch/internal/alert"
	"nftwatch/internal/metrics"
	"nftwatch/internal/model"
	"nftwatch/internal/transfer"
)

const (
	DefaultInterval  = 30 * time.Second
	DefaultBatchSize = uint64(5000)
)

var (
	ErrAlreadyPolling = errors.New("watcher is already polling")
	ErrNotPolling     = errors.New("watcher is not polling")
)

// State is the lifecycle state of a Watcher.
type State int32

const (
	StateIdle State = iota
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePolling:
		return "Polling"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// LogSource returns the raw logs of a contract within an inclusive range.
type LogSource interface {
	Logs(ctx context.Context, contract common.Address, blockRange model.BlockRange) ([]model.RawLog, error)
}

// BlockSource reports the current chain head.
type BlockSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// Config holds runtime settings for the watcher.
type Config struct {
	Contract   common.Address
	Collection model.CollectionMeta
	Interval   time.Duration
	BatchSize  uint64
	// StartBlock is the first block to scan. Zero starts after the chain head
	// observed by the first Start.
	StartBlock uint64
}

// PollResult summarizes one poll cycle.
type PollResult struct {
	Ranges       []model.BlockRange
	Logs         int
	Transactions []model.Transaction
	Unmatched    []transfer.Unmatched
	Skipped      int
	LastChecked  uint64
}

// Watcher polls a log source for one contract and raises an alert for every
// transfer it reconstructs.
type Watcher struct {
	cfg      Config
	logs     LogSource
	blocks   BlockSource
	notifier alert.Notifier
	logger   *zap.Logger
	contract string

	mu          sync.Mutex
	state       State
	cancel      context.CancelFunc
	done        chan struct{}
	initialized bool

	pollMu      sync.Mutex
	lastChecked uint64
}

// New builds a Watcher with its dependencies.
func New(cfg Config, logs LogSource, blocks BlockSource, notifier alert.Notifier, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Watcher{
		cfg:      cfg,
		logs:     logs,
		blocks:   blocks,
		notifier: notifier,
		logger:   logger,
		contract: strings.ToLower(cfg.Contract.Hex()),
	}
}

// State reports whether the watcher is idle or polling.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastChecked returns the last block whose logs were fully processed.
func (w *Watcher) LastChecked() uint64 {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()
	return w.lastChecked
}

// Start moves the watcher from Idle to Polling and runs the poll loop until
// Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StatePolling {
		return ErrAlreadyPolling
	}
	if w.logs == nil || w.blocks == nil {
		return fmt.Errorf("log and block sources are required")
	}

	if !w.initialized {
		if err := w.initCursor(ctx); err != nil {
			return err
		}
		w.initialized = true
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.state = StatePolling
	w.cancel = cancel
	w.done = done

	w.logger.Info("watcher started",
		zap.String("contract", w.contract),
		zap.Duration("interval", w.cfg.Interval),
		zap.Uint64("last_checked", w.LastChecked()),
	)

	go w.run(runCtx, done)
	return nil
}

// Stop moves the watcher from Polling to Idle and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.state != StatePolling {
		w.mu.Unlock()
		return ErrNotPolling
	}
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Done returns a channel closed when the current run ends. It is nil while
// idle.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *Watcher) initCursor(ctx context.Context) error {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	if w.cfg.StartBlock > 0 {
		w.lastChecked = w.cfg.StartBlock - 1
		return nil
	}

	latest, err := w.blocks.LatestBlockNumber(ctx)
	if err != nil {
		metrics.PollErrors.WithLabelValues("latest_block").Inc()
		return fmt.Errorf("get latest block: %w", err)
	}
	w.lastChecked = latest
	metrics.LatestBlock.Set(float64(latest))
	metrics.LastCheckedBlock.Set(float64(latest))
	return nil
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer func() {
		w.mu.Lock()
		if w.done == done {
			w.state = StateIdle
			w.cancel = nil
			w.done = nil
		}
		w.mu.Unlock()
		close(done)
		w.logger.Info("watcher stopped", zap.String("contract", w.contract))
	}()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("poll failed, retrying next interval",
				zap.Error(err),
				zap.Uint64("last_checked", w.LastChecked()),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll runs a single cycle: it scans every block after the last checked one
// up to the chain head. The cursor only advances past batches whose alerts
// were delivered, so a failed batch is retried on the next call.
func (w *Watcher) Poll(ctx context.Context) (PollResult, error) {
	w.pollMu.Lock()
	defer w.pollMu.Unlock()

	result := PollResult{LastChecked: w.lastChecked}

	latest, err := w.blocks.LatestBlockNumber(ctx)
	if err != nil {
		metrics.PollErrors.WithLabelValues("latest_block").Inc()
		return result, fmt.Errorf("get latest block: %w", err)
	}
	metrics.LatestBlock.Set(float64(latest))

	if latest <= w.lastChecked {
		w.logger.Debug("no new blocks", zap.Uint64("latest", latest), zap.Uint64("last_checked", w.lastChecked))
		return result, nil
	}

	ranges, err := SplitRange(w.lastChecked+1, latest, w.cfg.BatchSize)
	if err != nil {
		return result, err
	}

	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		logs, err := w.logs.Logs(ctx, w.cfg.Contract, blockRange)
		if err != nil {
			metrics.PollErrors.WithLabelValues("fetch").Inc()
			return result, fmt.Errorf("fetch logs %d-%d: %w", blockRange.From, blockRange.To, err)
		}

		rebuilt, err := transfer.Reconstruct(logs)
		if err != nil {
			metrics.PollErrors.WithLabelValues("reconstruct").Inc()
			w.logger.Error("reconstruct failed",
				zap.Error(err),
				zap.Uint64("from", blockRange.From),
				zap.Uint64("to", blockRange.To),
			)
			return result, fmt.Errorf("reconstruct %d-%d: %w", blockRange.From, blockRange.To, err)
		}
		transfer.SortByTimestamp(rebuilt.Transactions)

		for _, u := range rebuilt.Unmatched {
			w.logger.Warn("unmatched sender observation",
				zap.String("token_id", u.TokenID.String()),
				zap.Uint64("timestamp", u.Timestamp),
				zap.String("sender", u.Sender),
			)
		}

		if len(rebuilt.Transactions) > 0 && w.notifier != nil {
			alerts := alert.Build(w.contract, w.cfg.Collection, rebuilt.Transactions)
			if err := w.notifier.Notify(ctx, alerts); err != nil {
				metrics.PollErrors.WithLabelValues("notify").Inc()
				return result, fmt.Errorf("notify %d-%d: %w", blockRange.From, blockRange.To, err)
			}
		}

		metrics.TransfersDetected.Add(float64(len(rebuilt.Transactions)))
		metrics.UnmatchedObservations.Add(float64(len(rebuilt.Unmatched)))
		metrics.SkippedRecords.Add(float64(rebuilt.Skipped))

		w.lastChecked = blockRange.To
		metrics.LastCheckedBlock.Set(float64(blockRange.To))

		result.Ranges = append(result.Ranges, blockRange)
		result.Logs += len(logs)
		result.Transactions = append(result.Transactions, rebuilt.Transactions...)
		result.Unmatched = append(result.Unmatched, rebuilt.Unmatched...)
		result.Skipped += rebuilt.Skipped
		result.LastChecked = w.lastChecked

		w.logger.Info("latest block checked",
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
			zap.Int("logs", len(logs)),
			zap.Int("transactions", len(rebuilt.Transactions)),
			zap.Int("unmatched", len(rebuilt.Unmatched)),
			zap.Int("skipped", rebuilt.Skipped),
		)
	}

	return result, nil
}
