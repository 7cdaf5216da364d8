package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const marketRegistryABIJSON = `[
  {
    "inputs": [{"internalType": "bytes32", "name": "marketId", "type": "bytes32"}],
    "name": "getPool",
    "outputs": [{"internalType": "address", "name": "", "type": "address"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	marketRegistryABI     abi.ABI
	marketRegistryABIOnce sync.Once
	marketRegistryABIErr  error
)

// MarketRegistryABI returns the parsed market registry ABI.
func MarketRegistryABI() (abi.ABI, error) {
	marketRegistryABIOnce.Do(func() {
		marketRegistryABI, marketRegistryABIErr = abi.JSON(strings.NewReader(marketRegistryABIJSON))
	})
	return marketRegistryABI, marketRegistryABIErr
}
