package model

import "math/big"

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// PoolMeta holds the immutable pool metadata loaded once per session.
type PoolMeta struct {
	Address     string    `json:"address"`
	Token0      TokenMeta `json:"token0"`
	Token1      TokenMeta `json:"token1"`
	Fee         uint32    `json:"fee"`
	TickSpacing int32     `json:"tick_spacing"`
}

// PoolState is the live pool state used for order-book reconstruction.
// ActiveLiquidity is the liquidity serving trades across the tick range
// containing the current price, not a per-tick value.
type PoolState struct {
	CurrentTick     int32
	SqrtPriceX96    *big.Int
	ActiveLiquidity *big.Int
	TickSpacing     int32
	Token0Decimals  uint8
	Token1Decimals  uint8
}

// TickLiquidity is the sampled state of a single tick. Uninitialized
// ticks carry a zero LiquidityNet and contribute nothing to the book.
type TickLiquidity struct {
	Tick         int32    `json:"tick"`
	LiquidityNet *big.Int `json:"liquidity_net"`
	Initialized  bool     `json:"initialized"`
}
