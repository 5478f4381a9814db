package nft

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc721ABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

// Some early collections return bytes32 instead of string for name/symbol.
const erc721ABIBytes32JSON = `[
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	erc721ABI            abi.ABI
	erc721ABIOnce        sync.Once
	erc721ABIErr         error
	erc721ABIBytes32     abi.ABI
	erc721ABIBytes32Once sync.Once
	erc721ABIBytes32Err  error
)

// ERC721ABI returns the parsed ERC721 ABI subset.
func ERC721ABI() (abi.ABI, error) {
	erc721ABIOnce.Do(func() {
		erc721ABI, erc721ABIErr = abi.JSON(strings.NewReader(erc721ABIJSON))
	})
	return erc721ABI, erc721ABIErr
}

func erc721ABIBytes32Instance() (abi.ABI, error) {
	erc721ABIBytes32Once.Do(func() {
		erc721ABIBytes32, erc721ABIBytes32Err = abi.JSON(strings.NewReader(erc721ABIBytes32JSON))
	})
	return erc721ABIBytes32, erc721ABIBytes32Err
}

// TransferTopic returns topic0 of Transfer(address,address,uint256).
func TransferTopic() (common.Hash, error) {
	parsed, err := ERC721ABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["Transfer"].ID, nil
}
