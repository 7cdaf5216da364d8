package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"poolBook/internal/chain"
	"poolBook/internal/model"
)

// BatchCaller is the batched read transport. *chain.Client satisfies it.
type BatchCaller interface {
	BatchEthCall(ctx context.Context, calls []ethereum.CallMsg) ([]chain.CallResult, error)
}

// FetchPoolState reads slot0 and the active liquidity in one batched
// round trip and combines them with the cached metadata. Both reads are
// required; any failure fails the fetch.
func FetchPoolState(ctx context.Context, caller BatchCaller, pool common.Address, meta model.PoolMeta) (model.PoolState, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	slot0Data, err := poolABI.Pack("slot0")
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pack slot0: %w", err)
	}
	liquidityData, err := poolABI.Pack("liquidity")
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pack liquidity: %w", err)
	}

	results, err := caller.BatchEthCall(ctx, []ethereum.CallMsg{
		{To: &pool, Data: slot0Data},
		{To: &pool, Data: liquidityData},
	})
	if err != nil {
		return model.PoolState{}, fmt.Errorf("pool state batch: %w", err)
	}
	for i, result := range results {
		if result.Err != nil {
			return model.PoolState{}, fmt.Errorf("pool state item %d: %w", i, result.Err)
		}
	}

	slot0Values, err := poolABI.Unpack("slot0", results[0].Output)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("unpack slot0: %w", err)
	}
	if len(slot0Values) < 2 {
		return model.PoolState{}, fmt.Errorf("unexpected slot0 values: %d", len(slot0Values))
	}
	sqrtPrice, err := asBigInt(slot0Values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tickInt, err := asBigInt(slot0Values[1])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("slot0 tick: %w", err)
	}

	liquidityValues, err := poolABI.Unpack("liquidity", results[1].Output)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("unpack liquidity: %w", err)
	}
	liquidity, err := asBigInt(liquidityValues[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("liquidity: %w", err)
	}
	if liquidity.Sign() < 0 {
		return model.PoolState{}, fmt.Errorf("negative active liquidity: %s", liquidity)
	}

	return model.PoolState{
		CurrentTick:     tick,
		SqrtPriceX96:    sqrtPrice,
		ActiveLiquidity: liquidity,
		TickSpacing:     meta.TickSpacing,
		Token0Decimals:  meta.Token0.Decimals,
		Token1Decimals:  meta.Token1.Decimals,
	}, nil
}

// PackTicksCall encodes a ticks(tick) call for batched sampling.
func PackTicksCall(tick int32) ([]byte, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	data, err := poolABI.Pack("ticks", big.NewInt(int64(tick)))
	if err != nil {
		return nil, fmt.Errorf("pack ticks: %w", err)
	}
	return data, nil
}

// UnpackTickLiquidity extracts liquidityNet and the initialized flag
// from a ticks(tick) call result.
func UnpackTickLiquidity(output []byte) (*big.Int, bool, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, false, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := poolABI.Unpack("ticks", output)
	if err != nil {
		return nil, false, fmt.Errorf("unpack ticks: %w", err)
	}
	if len(values) != 8 {
		return nil, false, fmt.Errorf("unexpected ticks values: %d", len(values))
	}
	liquidityNet, err := asBigInt(values[1])
	if err != nil {
		return nil, false, fmt.Errorf("liquidity net: %w", err)
	}
	initialized, err := asBool(values[7])
	if err != nil {
		return nil, false, fmt.Errorf("initialized: %w", err)
	}
	return liquidityNet, initialized, nil
}
