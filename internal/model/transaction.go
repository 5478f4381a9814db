package model

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// Transaction is a transfer rebuilt from a sender/receiver log pair.
type Transaction struct {
	TokenID   *big.Int `json:"token_id"`
	Sender    string   `json:"sender"`
	Receiver  string   `json:"receiver"`
	Timestamp uint64   `json:"timestamp"`
}

type transactionJSON struct {
	TokenID   string `json:"token_id"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Timestamp uint64 `json:"timestamp"`
}

// MarshalJSON encodes the token id as a decimal string so 256-bit ids survive
// JSON consumers that only have float64 numbers.
func (t Transaction) MarshalJSON() ([]byte, error) {
	tokenID := ""
	if t.TokenID != nil {
		tokenID = t.TokenID.String()
	}
	return json.Marshal(transactionJSON{
		TokenID:   tokenID,
		Sender:    t.Sender,
		Receiver:  t.Receiver,
		Timestamp: t.Timestamp,
	})
}

// UnmarshalJSON decodes a Transaction written by MarshalJSON.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var raw transactionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var tokenID *big.Int
	if raw.TokenID != "" {
		var ok bool
		tokenID, ok = new(big.Int).SetString(raw.TokenID, 10)
		if !ok {
			return fmt.Errorf("invalid token_id: %q", raw.TokenID)
		}
	}

	*t = Transaction{
		TokenID:   tokenID,
		Sender:    raw.Sender,
		Receiver:  raw.Receiver,
		Timestamp: raw.Timestamp,
	}
	return nil
}
