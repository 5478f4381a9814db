package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nftwatch/internal/model"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeInput(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestReconstructCommandStdout(t *testing.T) {
	in := writeInput(t, sampleLog+"\n"+sampleReceiverLog+"\n")

	out, err := runCLI(t, "reconstruct", "--in", in, "--log-level", "error")
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	var tx model.Transaction
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &tx); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if tx.TokenID.Int64() != 7 || tx.Timestamp != 100 {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.Sender != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" || tx.Receiver != "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Fatalf("unexpected addresses: %+v", tx)
	}
}

func TestReconstructCommandOutFile(t *testing.T) {
	in := writeInput(t, "["+sampleLog+","+sampleReceiverLog+"]")
	outPath := filepath.Join(t.TempDir(), "nested", "txs.jsonl")

	if _, err := runCLI(t, "reconstruct", "--in", in, "--out", outPath, "--log-level", "error"); err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one transaction line, got %d", len(lines))
	}
}

func TestReconstructCommandContractFilter(t *testing.T) {
	in := writeInput(t, sampleLog+"\n"+sampleReceiverLog+"\n")

	out, err := runCLI(t, "reconstruct", "--in", in, "--contract", "0x0000000000000000000000000000000000000001", "--log-level", "error")
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no transactions for other contract, got %q", out)
	}
}

func TestReconstructCommandMalformed(t *testing.T) {
	bad := strings.Replace(sampleLog, `"timeStamp":"0x64"`, `"timeStamp":"0xzz"`, 1)
	in := writeInput(t, bad+"\n")

	if _, err := runCLI(t, "reconstruct", "--in", in, "--log-level", "error"); err == nil {
		t.Fatalf("expected malformed record error")
	}
}

func TestReconstructCommandRequiresInput(t *testing.T) {
	if _, err := runCLI(t, "reconstruct", "--log-level", "error"); err == nil {
		t.Fatalf("expected missing input error")
	}
}
