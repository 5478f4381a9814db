package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nftwatch/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

// Alert is one detected transfer ready for delivery.
type Alert struct {
	Contract   string
	Collection model.CollectionMeta
	Tx         model.Transaction
}

// Time returns the transfer time in UTC.
func (a Alert) Time() time.Time {
	return time.Unix(int64(a.Tx.Timestamp), 0).UTC()
}

// Build turns transactions into alerts for the given collection.
func Build(contract string, collection model.CollectionMeta, txs []model.Transaction) []Alert {
	alerts := make([]Alert, 0, len(txs))
	for _, tx := range txs {
		alerts = append(alerts, Alert{Contract: contract, Collection: collection, Tx: tx})
	}
	return alerts
}

// Format renders the human-readable alert block.
func Format(a Alert) string {
	var b strings.Builder
	b.WriteString("----TRANSACTION DETECTED----\n")
	fmt.Fprintf(&b, "@ %s UTC\n", a.Time().Format(timeLayout))
	fmt.Fprintf(&b, "NFT Collection Contract Address: %s\n", a.Contract)
	if label := collectionLabel(a.Collection); label != "" {
		fmt.Fprintf(&b, "Collection: %s\n", label)
	}
	fmt.Fprintf(&b, "Token ID: %s\n", tokenIDString(a.Tx))
	fmt.Fprintf(&b, "Sender Address: %s\n", a.Tx.Sender)
	fmt.Fprintf(&b, "Receiver Address: %s\n", a.Tx.Receiver)
	return b.String()
}

func collectionLabel(meta model.CollectionMeta) string {
	switch {
	case meta.Name != "" && meta.Symbol != "":
		return fmt.Sprintf("%s (%s)", meta.Name, meta.Symbol)
	case meta.Name != "":
		return meta.Name
	default:
		return meta.Symbol
	}
}

func tokenIDString(tx model.Transaction) string {
	if tx.TokenID == nil {
		return "0"
	}
	return tx.TokenID.String()
}

// Notifier delivers alerts to a consumer.
type Notifier interface {
	Notify(ctx context.Context, alerts []Alert) error
}

// LogNotifier writes each alert as a structured log entry.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Notify(_ context.Context, alerts []Alert) error {
	if n == nil || n.Logger == nil {
		return nil
	}
	for _, a := range alerts {
		n.Logger.Info("transaction detected",
			zap.String("contract", a.Contract),
			zap.String("token_id", tokenIDString(a.Tx)),
			zap.String("sender", a.Tx.Sender),
			zap.String("receiver", a.Tx.Receiver),
			zap.Uint64("timestamp", a.Tx.Timestamp),
			zap.Time("time", a.Time()),
		)
	}
	return nil
}

// WriterNotifier prints formatted alerts to an io.Writer.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(_ context.Context, alerts []Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range alerts {
		if _, err := io.WriteString(n.w, Format(a)+"\n"); err != nil {
			return fmt.Errorf("write alert: %w", err)
		}
	}
	return nil
}

// MultiNotifier fans alerts out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, alerts []Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alerts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
