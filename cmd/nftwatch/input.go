package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"nftwatch/internal/model"
)

type explorerEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// readRawLogs accepts a JSON array of logs, an explorer getLogs response, or
// one log object per line.
func readRawLogs(r io.Reader) ([]model.RawLog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var logs []model.RawLog
		if err := json.Unmarshal(trimmed, &logs); err != nil {
			return nil, fmt.Errorf("decode log array: %w", err)
		}
		return logs, nil
	}

	var envelope explorerEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Result != nil {
		result := bytes.TrimSpace(envelope.Result)
		if len(result) == 0 || result[0] != '[' {
			return nil, fmt.Errorf("explorer response carries no log list: %s", envelope.Message)
		}
		var logs []model.RawLog
		if err := json.Unmarshal(result, &logs); err != nil {
			return nil, fmt.Errorf("decode explorer result: %w", err)
		}
		return logs, nil
	}

	return readJSONL(trimmed)
}

func readJSONL(data []byte) ([]model.RawLog, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var logs []model.RawLog
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var log model.RawLog
		if err := json.Unmarshal(line, &log); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", lineNo, err)
		}
		logs = append(logs, log)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return logs, nil
}
