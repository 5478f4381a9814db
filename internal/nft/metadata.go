package nft

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"nftwatch/internal/model"
)

// ContractCaller performs read-only contract calls.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// CollectionMetaCache caches collection metadata by address.
type CollectionMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.CollectionMeta
}

func NewCollectionMetaCache() *CollectionMetaCache {
	return &CollectionMetaCache{data: make(map[common.Address]model.CollectionMeta)}
}

func (c *CollectionMetaCache) Get(address common.Address) (model.CollectionMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *CollectionMetaCache) Set(address common.Address, meta model.CollectionMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetchCollectionMeta loads name and symbol of an ERC721 collection. Missing
// or reverting methods leave the field empty; only ABI setup errors are
// returned.
func FetchCollectionMeta(ctx context.Context, caller ContractCaller, collection common.Address, cache *CollectionMetaCache, logger *zap.Logger) (model.CollectionMeta, error) {
	if cache != nil {
		if meta, ok := cache.Get(collection); ok {
			return meta, nil
		}
	}

	meta := model.CollectionMeta{Address: strings.ToLower(collection.Hex())}
	if caller == nil {
		return meta, fmt.Errorf("contract caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC721ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc721 abi: %w", err)
	}
	bytes32ABI, err := erc721ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc721 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &collection, Data: data}
		resp, err := caller.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	fetch := func(method string) string {
		values, err := call(method, stringABI)
		if err == nil {
			if text, ok := values[0].(string); ok {
				return text
			}
		}
		values, errBytes := call(method, bytes32ABI)
		if errBytes == nil {
			if text, ok := bytes32ToString(values[0]); ok {
				return text
			}
		}
		logger.Debug("collection metadata call failed",
			zap.String("collection", meta.Address),
			zap.String("method", method),
			zap.Error(err),
		)
		return ""
	}

	meta.Name = fetch("name")
	meta.Symbol = fetch("symbol")

	if cache != nil {
		cache.Set(collection, meta)
	}
	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}
