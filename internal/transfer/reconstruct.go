// Package transfer rebuilds NFT transfers from the raw logs of one contract.
//
// A transfer shows up as two four-topic records sharing token id and block
// timestamp: one whose receiver topic is the zero address (it carries the
// sender) and one whose receiver topic is non-zero (it carries the receiver).
// Reconstruct pairs them on (token id, timestamp).
package transfer

import (
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"nftwatch/internal/hexnum"
	"nftwatch/internal/model"
)

const transferTopicCount = 4

// Unmatched is a sender observation with no receiver at the same key.
type Unmatched struct {
	TokenID   *big.Int
	Timestamp uint64
	Sender    string
}

// Result is the output of a single Reconstruct call.
type Result struct {
	Transactions []model.Transaction
	Unmatched    []Unmatched
	// Skipped counts records dropped because they do not have four topics.
	Skipped int
}

// Reconstruct pairs sender and receiver observations into transactions.
//
// Output is grouped by token in first-seen order, then by timestamp in
// first-seen order within the token. It is not globally time-sorted; use
// SortByTimestamp for chronological order. A record that passes the topic
// filter but cannot be decoded fails the whole call with a
// *MalformedRecordError.
func Reconstruct(logs []model.RawLog) (Result, error) {
	confirmedSenders := newObservations()
	possibleReceivers := newObservations()

	var result Result
	for i, log := range logs {
		if len(log.Topics) != transferTopicCount {
			result.Skipped++
			continue
		}

		obs, err := decodeObservation(i, log)
		if err != nil {
			return Result{}, err
		}

		if obs.mintSentinel {
			confirmedSenders.put(obs.tokenID, obs.timestamp, obs.from)
		} else {
			possibleReceivers.put(obs.tokenID, obs.timestamp, obs.to)
		}
	}

	for _, token := range confirmedSenders.tokens {
		entry := confirmedSenders.byToken[token]
		for _, ts := range entry.timestamps {
			sender := entry.addrs[ts]
			receiver, ok := possibleReceivers.get(token, ts)
			if !ok {
				result.Unmatched = append(result.Unmatched, Unmatched{
					TokenID:   new(big.Int).Set(entry.id),
					Timestamp: ts,
					Sender:    formatAddress(sender),
				})
				continue
			}
			result.Transactions = append(result.Transactions, model.Transaction{
				TokenID:   new(big.Int).Set(entry.id),
				Sender:    formatAddress(sender),
				Receiver:  formatAddress(receiver),
				Timestamp: ts,
			})
		}
	}

	return result, nil
}

// SortByTimestamp orders transactions chronologically, keeping the
// reconstruction order for equal timestamps.
func SortByTimestamp(txs []model.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp < txs[j].Timestamp
	})
}

// observation is one decoded four-topic record. mintSentinel is set when the
// receiver topic is the integer zero.
type observation struct {
	tokenID      *big.Int
	timestamp    uint64
	from         common.Address
	to           common.Address
	mintSentinel bool
}

func decodeObservation(index int, log model.RawLog) (observation, error) {
	timestamp, err := hexnum.ParseUint64(log.TimeStamp)
	if err != nil {
		return observation{}, &MalformedRecordError{Index: index, Field: "timeStamp", Value: log.TimeStamp, Err: err}
	}

	from, err := decodeTopic(index, "topics[1]", log.Topics[1])
	if err != nil {
		return observation{}, err
	}
	to, err := decodeTopic(index, "topics[2]", log.Topics[2])
	if err != nil {
		return observation{}, err
	}
	tokenID, err := decodeTopic(index, "topics[3]", log.Topics[3])
	if err != nil {
		return observation{}, err
	}

	return observation{
		tokenID:      tokenID,
		timestamp:    timestamp,
		from:         common.BigToAddress(from),
		to:           common.BigToAddress(to),
		mintSentinel: to.Sign() == 0,
	}, nil
}

func decodeTopic(index int, field, topic string) (*big.Int, error) {
	value, err := hexnum.ParseBig(topic)
	if err != nil {
		return nil, &MalformedRecordError{Index: index, Field: field, Value: topic, Err: err}
	}
	if value.BitLen() > 256 {
		return nil, &MalformedRecordError{Index: index, Field: field, Value: topic, Err: errTopicTooLong}
	}
	return value, nil
}

// formatAddress renders the low 20 bytes as lowercase 0x-prefixed hex.
func formatAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// observations is a tokenId -> timestamp -> address mapping that remembers
// insertion order at both levels. Overwriting a key keeps its position.
type observations struct {
	tokens  []common.Hash
	byToken map[common.Hash]*tokenObservations
}

type tokenObservations struct {
	id         *big.Int
	timestamps []uint64
	addrs      map[uint64]common.Address
}

func newObservations() *observations {
	return &observations{byToken: make(map[common.Hash]*tokenObservations)}
}

func (o *observations) put(tokenID *big.Int, timestamp uint64, addr common.Address) {
	key := common.BigToHash(tokenID)
	entry, ok := o.byToken[key]
	if !ok {
		entry = &tokenObservations{id: tokenID, addrs: make(map[uint64]common.Address)}
		o.byToken[key] = entry
		o.tokens = append(o.tokens, key)
	}
	if _, seen := entry.addrs[timestamp]; !seen {
		entry.timestamps = append(entry.timestamps, timestamp)
	}
	entry.addrs[timestamp] = addr
}

func (o *observations) get(token common.Hash, timestamp uint64) (common.Address, bool) {
	entry, ok := o.byToken[token]
	if !ok {
		return common.Address{}, false
	}
	addr, ok := entry.addrs[timestamp]
	return addr, ok
}
