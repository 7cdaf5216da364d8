package book

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"poolBook/internal/model"
	"poolBook/internal/pricing"
)

// Build folds the sampled tick window into a bid/ask ladder. The walk
// starts from the grid tick containing the current price and applies
// each crossed tick's liquidityNet: added walking upward, subtracted
// walking downward. Depth of a band [T, T+spacing) is the token0 amount
// L * (1/sqrt(p(T)) - 1/sqrt(p(T+spacing))), scaled to base-token
// units. Inconsistent inputs that drive the running liquidity negative
// are clamped to zero.
func Build(state model.PoolState, ticks []model.TickLiquidity, logger *zap.Logger) model.OrderBook {
	if logger == nil {
		logger = zap.NewNop()
	}

	spacing := state.TickSpacing
	base := alignTick(state.CurrentTick, spacing)

	netByTick := make(map[int32]*big.Int, len(ticks))
	lo, hi := base, base
	for _, tick := range ticks {
		if tick.LiquidityNet != nil {
			netByTick[tick.Tick] = tick.LiquidityNet
		}
		if tick.Tick < lo {
			lo = tick.Tick
		}
		if tick.Tick > hi {
			hi = tick.Tick
		}
	}

	scale0 := math.Pow(10, float64(state.Token0Decimals))

	// Asks: walk upward from the band above the current one, folding in
	// the net liquidity of each boundary crossed.
	asks := make([]model.OrderBookLevel, 0, (hi-base)/spacing)
	liquidity := liquidityFloat(state.ActiveLiquidity)
	for t := base + spacing; t <= hi; t += spacing {
		liquidity += liquidityNetFloat(netByTick, t-spacing)
		asks = append(asks, level(t, spacing, liquidity, scale0, state, logger))
	}

	// Bids: walk downward from the current band, removing each crossed
	// tick's net liquidity after its band is emitted.
	bids := make([]model.OrderBookLevel, 0, (base-lo)/spacing+1)
	liquidity = liquidityFloat(state.ActiveLiquidity)
	for t := base; t >= lo; t -= spacing {
		bids = append(bids, level(t, spacing, liquidity, scale0, state, logger))
		liquidity -= liquidityNetFloat(netByTick, t)
	}

	return model.OrderBook{
		Bids:     bids,
		Asks:     asks,
		MidTick:  state.CurrentTick,
		MidPrice: pricing.PriceAtTick(state.CurrentTick, state.Token0Decimals, state.Token1Decimals),
	}
}

func level(tick, spacing int32, liquidity, scale0 float64, state model.PoolState, logger *zap.Logger) model.OrderBookLevel {
	if liquidity < 0 {
		logger.Warn("negative accumulated liquidity clamped",
			zap.Int32("tick", tick), zap.Float64("liquidity", liquidity))
		liquidity = 0
	}

	depth := liquidity * (1/pricing.SqrtRatioAtTick(tick) - 1/pricing.SqrtRatioAtTick(tick+spacing)) / scale0
	if depth < 0 {
		depth = 0
	}

	return model.OrderBookLevel{
		Price: pricing.PriceAtTick(tick, state.Token0Decimals, state.Token1Decimals),
		Depth: decimal.NewFromFloat(depth),
	}
}

func liquidityFloat(liquidity *big.Int) float64 {
	if liquidity == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(liquidity).Float64()
	return f
}

func liquidityNetFloat(netByTick map[int32]*big.Int, tick int32) float64 {
	net, ok := netByTick[tick]
	if !ok {
		return 0
	}
	f, _ := new(big.Float).SetInt(net).Float64()
	return f
}
