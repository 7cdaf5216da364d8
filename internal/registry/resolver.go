// Package registry resolves external market identifiers to pool
// addresses via the market registry contract.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"poolBook/internal/dex"
)

// ErrInvalidPoolAddress is returned when the registry resolves a market
// to the zero address.
var ErrInvalidPoolAddress = errors.New("registry returned zero address")

// Resolver looks up pool addresses in the market registry contract.
type Resolver struct {
	caller   dex.ContractCaller
	contract common.Address
}

// NewResolver builds a resolver against the given registry contract.
func NewResolver(caller dex.ContractCaller, contract common.Address) *Resolver {
	return &Resolver{caller: caller, contract: contract}
}

// Resolve returns the pool address for the market identifier.
func (r *Resolver) Resolve(ctx context.Context, marketID string) (common.Address, error) {
	registryABI, err := dex.MarketRegistryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse registry abi: %w", err)
	}

	data, err := registryABI.Pack("getPool", MarketKey(marketID))
	if err != nil {
		return common.Address{}, fmt.Errorf("pack getPool: %w", err)
	}

	msg := ethereum.CallMsg{To: &r.contract, Data: data}
	resp, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("call getPool: %w", err)
	}

	values, err := registryABI.Unpack("getPool", resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack getPool: %w", err)
	}
	pool, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected getPool result type %T", values[0])
	}

	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("market %s: %w", marketID, ErrInvalidPoolAddress)
	}
	return pool, nil
}

// MarketKey maps a market identifier onto the registry's bytes32 key
// space: a 0x-prefixed 32-byte hex string is used verbatim, anything
// else is keccak256-hashed.
func MarketKey(marketID string) [32]byte {
	if raw, err := hexutil.Decode(marketID); err == nil && len(raw) == 32 {
		var key [32]byte
		copy(key[:], raw)
		return key
	}
	return crypto.Keccak256Hash([]byte(marketID))
}
