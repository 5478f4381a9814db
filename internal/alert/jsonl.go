package alert

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONLNotifier appends alerts to a JSONL file.
type JSONLNotifier struct {
	path string
	mu   sync.Mutex
}

func NewJSONLNotifier(path string) *JSONLNotifier {
	return &JSONLNotifier{path: path}
}

type alertRecord struct {
	Contract         string `json:"contract"`
	CollectionName   string `json:"collection_name,omitempty"`
	CollectionSymbol string `json:"collection_symbol,omitempty"`
	TokenID          string `json:"token_id"`
	Sender           string `json:"sender"`
	Receiver         string `json:"receiver"`
	Timestamp        uint64 `json:"timestamp"`
	Time             string `json:"time"`
}

// Notify appends a batch of alerts as JSON lines.
func (n *JSONLNotifier) Notify(_ context.Context, alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	dir := filepath.Dir(n.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	file, err := os.OpenFile(n.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, a := range alerts {
		line, err := json.Marshal(alertRecord{
			Contract:         a.Contract,
			CollectionName:   a.Collection.Name,
			CollectionSymbol: a.Collection.Symbol,
			TokenID:          tokenIDString(a.Tx),
			Sender:           a.Tx.Sender,
			Receiver:         a.Tx.Receiver,
			Timestamp:        a.Tx.Timestamp,
			Time:             a.Time().Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("marshal alert: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write alert: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
