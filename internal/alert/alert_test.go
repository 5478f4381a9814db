package alert

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"nftwatch/internal/model"
)

const testContract = "0x49cf6f5d44e70224e2e23fdcdd2c053f30ada28b"

func sampleAlert() Alert {
	return Alert{
		Contract:   testContract,
		Collection: model.CollectionMeta{Address: testContract, Name: "Blockchain Miners Club", Symbol: "BMC"},
		Tx: model.Transaction{
			TokenID:   big.NewInt(5),
			Sender:    "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Receiver:  "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			Timestamp: 1637151187,
		},
	}
}

func TestFormat(t *testing.T) {
	want := strings.Join([]string{
		"----TRANSACTION DETECTED----",
		"@ 2021-11-17 12:13:07 UTC",
		"NFT Collection Contract Address: " + testContract,
		"Collection: Blockchain Miners Club (BMC)",
		"Token ID: 5",
		"Sender Address: 0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		"Receiver Address: 0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		"",
	}, "\n")

	if got := Format(sampleAlert()); got != want {
		t.Fatalf("format mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatWithoutCollection(t *testing.T) {
	a := sampleAlert()
	a.Collection = model.CollectionMeta{}
	if strings.Contains(Format(a), "Collection:") {
		t.Fatalf("unexpected collection line")
	}
}

func TestBuild(t *testing.T) {
	a := sampleAlert()
	alerts := Build(testContract, a.Collection, []model.Transaction{a.Tx, a.Tx})
	if len(alerts) != 2 || alerts[1].Contract != testContract || alerts[1].Collection.Symbol != "BMC" {
		t.Fatalf("build mismatch: %+v", alerts)
	}
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)
	if err := n.Notify(context.Background(), []Alert{sampleAlert()}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(buf.String(), "Token ID: 5") {
		t.Fatalf("missing alert text: %q", buf.String())
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := &LogNotifier{Logger: zap.New(core)}
	if err := n.Notify(context.Background(), []Alert{sampleAlert()}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	entries := logs.FilterMessage("transaction detected").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["token_id"] != "5" {
		t.Fatalf("token id field mismatch: %v", entries[0].ContextMap())
	}
}

func TestJSONLNotifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "alerts.jsonl")
	n := NewJSONLNotifier(path)

	if err := n.Notify(context.Background(), []Alert{sampleAlert()}); err != nil {
		t.Fatalf("first notify: %v", err)
	}
	if err := n.Notify(context.Background(), []Alert{sampleAlert()}); err != nil {
		t.Fatalf("second notify: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines int
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines++
		var rec map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		if rec["token_id"] != "5" || rec["time"] != "2021-11-17T12:13:07Z" {
			t.Fatalf("record mismatch: %v", rec)
		}
	}
	if lines != 2 {
		t.Fatalf("expected appended lines, got %d", lines)
	}
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, []Alert) error {
	f.calls++
	return errors.New("down")
}

func TestMultiNotifierJoinsErrors(t *testing.T) {
	first := &failingNotifier{}
	var buf bytes.Buffer
	m := MultiNotifier{first, nil, NewWriterNotifier(&buf)}

	err := m.Notify(context.Background(), []Alert{sampleAlert()})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if first.calls != 1 || buf.Len() == 0 {
		t.Fatalf("expected every notifier to run")
	}
}
