package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nftwatch/internal/config"
	"nftwatch/internal/model"
	"nftwatch/internal/transfer"
)

func runReconstruct(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReconstruct(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Contract != "" && !common.IsHexAddress(cfg.Contract) {
		return fmt.Errorf("invalid contract address %q", cfg.Contract)
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	logs, err := readRawLogs(inputFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", cfg.In, err)
	}
	total := len(logs)
	if cfg.Contract != "" {
		logs = filterByAddress(logs, common.HexToAddress(cfg.Contract))
	}

	result, err := transfer.Reconstruct(logs)
	if err != nil {
		return err
	}
	if cfg.Sort {
		transfer.SortByTimestamp(result.Transactions)
	}

	if cfg.Out == "" {
		if err := writeTransactions(cmd.OutOrStdout(), result.Transactions); err != nil {
			return err
		}
	} else {
		writer, err := newJSONLWriter(cfg.Out)
		if err != nil {
			return err
		}
		if err := writeTransactions(writer, result.Transactions); err != nil {
			writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}
	}

	for _, u := range result.Unmatched {
		logger.Warn("unmatched sender observation",
			zap.String("token_id", u.TokenID.String()),
			zap.Uint64("timestamp", u.Timestamp),
			zap.String("sender", u.Sender),
		)
	}

	logger.Info("reconstruct complete",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.Int("total", total),
		zap.Int("considered", len(logs)),
		zap.Int("transactions", len(result.Transactions)),
		zap.Int("unmatched", len(result.Unmatched)),
		zap.Int("skipped", result.Skipped),
	)

	return nil
}

func filterByAddress(logs []model.RawLog, contract common.Address) []model.RawLog {
	want := strings.ToLower(contract.Hex())
	out := logs[:0:0]
	for _, log := range logs {
		if strings.ToLower(log.Address) == want {
			out = append(out, log)
		}
	}
	return out
}

func writeTransactions(w io.Writer, txs []model.Transaction) error {
	enc := json.NewEncoder(w)
	for _, tx := range txs {
		if err := enc.Encode(tx); err != nil {
			return fmt.Errorf("write transaction: %w", err)
		}
	}
	return nil
}

type jsonlWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func newJSONLWriter(path string) (*jsonlWriter, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return &jsonlWriter{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

func (w *jsonlWriter) Write(p []byte) (int, error) {
	return w.writer.Write(p)
}

func (w *jsonlWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
