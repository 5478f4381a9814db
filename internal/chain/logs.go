package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"nftwatch/internal/model"
)

// LogSource serves contract logs from a node in the same shape the explorer
// returns them.
type LogSource struct {
	client *Client
	topic0 []common.Hash
}

// NewLogSource builds a LogSource; topic0 optionally narrows the query.
func NewLogSource(client *Client, topic0 ...common.Hash) *LogSource {
	return &LogSource{client: client, topic0: topic0}
}

// LatestBlockNumber returns the latest block number.
func (s *LogSource) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return s.client.LatestBlockNumber(ctx)
}

// Logs returns the logs emitted by contract within the inclusive range.
func (s *LogSource) Logs(ctx context.Context, contract common.Address, blockRange model.BlockRange) ([]model.RawLog, error) {
	logs, err := s.client.FilterLogs(ctx, blockRange.From, blockRange.To, []common.Address{contract}, s.topic0)
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}

	records := make([]model.RawLog, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		ts, err := s.client.BlockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, buildRawLog(log, ts))
	}
	return records, nil
}

func buildRawLog(log types.Log, timestamp uint64) model.RawLog {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}

	return model.RawLog{
		Address:          log.Address.Hex(),
		Topics:           topics,
		Data:             hexutil.Encode(log.Data),
		BlockNumber:      hexutil.EncodeUint64(log.BlockNumber),
		TimeStamp:        hexutil.EncodeUint64(timestamp),
		LogIndex:         hexutil.EncodeUint64(uint64(log.Index)),
		TransactionHash:  log.TxHash.Hex(),
		TransactionIndex: hexutil.EncodeUint64(uint64(log.TxIndex)),
	}
}
