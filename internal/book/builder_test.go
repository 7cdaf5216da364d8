package book

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolBook/internal/model"
	"poolBook/internal/pricing"
)

func flatState(tick int32, liquidity int64) model.PoolState {
	return model.PoolState{
		CurrentTick:     tick,
		SqrtPriceX96:    pricing.SqrtPriceX96AtTick(tick),
		ActiveLiquidity: big.NewInt(liquidity),
		TickSpacing:     60,
		Token0Decimals:  18,
		Token1Decimals:  18,
	}
}

func uninitializedWindow(center, spacing int32, windowSize int) []model.TickLiquidity {
	ticks := Window(center, spacing, windowSize)
	out := make([]model.TickLiquidity, len(ticks))
	for i, t := range ticks {
		out[i] = model.TickLiquidity{Tick: t, LiquidityNet: big.NewInt(0)}
	}
	return out
}

func TestBuildFlatLiquidity(t *testing.T) {
	state := flatState(0, 1_000_000)
	book := Build(state, uninitializedWindow(0, 60, 2), nil)

	assert.Equal(t, int32(0), book.MidTick)
	assert.InDelta(t, 1.0, book.MidPrice.InexactFloat64(), 1e-9)

	require.Len(t, book.Asks, 2)
	require.Len(t, book.Bids, 3)

	wantAskPrices := []int32{60, 120}
	for i, tick := range wantAskPrices {
		want := pricing.PriceAtTick(tick, 18, 18)
		assert.True(t, book.Asks[i].Price.Equal(want), "ask %d price %s", i, book.Asks[i].Price)
	}
	wantBidPrices := []int32{0, -60, -120}
	for i, tick := range wantBidPrices {
		want := pricing.PriceAtTick(tick, 18, 18)
		assert.True(t, book.Bids[i].Price.Equal(want), "bid %d price %s", i, book.Bids[i].Price)
	}

	// Flat active liquidity: every band has positive depth, shrinking
	// (weakly) toward the window edges.
	for i, ask := range book.Asks {
		assert.True(t, ask.Depth.IsPositive(), "ask %d depth %s", i, ask.Depth)
		if i > 0 {
			assert.True(t, ask.Depth.LessThanOrEqual(book.Asks[i-1].Depth), "ask depth grows outward at %d", i)
		}
	}
	for i, bid := range book.Bids {
		assert.True(t, bid.Depth.IsPositive(), "bid %d depth %s", i, bid.Depth)
		if i > 0 {
			assert.True(t, bid.Depth.LessThanOrEqual(book.Bids[i-1].Depth), "bid depth grows outward at %d", i)
		}
	}
}

func TestBuildOrderingAroundInteriorTick(t *testing.T) {
	// Current tick strictly inside a band: every bid below mid, every
	// ask above, bids descending, asks ascending.
	state := flatState(75, 5_000_000)
	book := Build(state, uninitializedWindow(75, 60, 3), nil)

	require.NotEmpty(t, book.Bids)
	require.NotEmpty(t, book.Asks)

	for i, bid := range book.Bids {
		assert.True(t, bid.Price.LessThan(book.MidPrice), "bid %d price %s >= mid %s", i, bid.Price, book.MidPrice)
		if i > 0 {
			assert.True(t, bid.Price.LessThan(book.Bids[i-1].Price), "bids not strictly descending at %d", i)
		}
	}
	for i, ask := range book.Asks {
		assert.True(t, ask.Price.GreaterThan(book.MidPrice), "ask %d price %s <= mid %s", i, ask.Price, book.MidPrice)
		if i > 0 {
			assert.True(t, ask.Price.GreaterThan(book.Asks[i-1].Price), "asks not strictly ascending at %d", i)
		}
	}
}

func TestBuildAppliesLiquidityNet(t *testing.T) {
	state := flatState(0, 1000)
	ticks := uninitializedWindow(0, 60, 2)
	for i := range ticks {
		if ticks[i].Tick == 0 {
			ticks[i].LiquidityNet = big.NewInt(1000)
			ticks[i].Initialized = true
		}
	}

	book := Build(state, ticks, nil)

	// Crossing downward past tick 0 removes its net: lower bids are empty.
	require.Len(t, book.Bids, 3)
	assert.True(t, book.Bids[0].Depth.IsPositive())
	assert.True(t, book.Bids[1].Depth.IsZero(), "depth below tick 0 should be zero, got %s", book.Bids[1].Depth)
	assert.True(t, book.Bids[2].Depth.IsZero())

	// Crossing upward folds the net in: the first ask band is deeper
	// than it would be with the flat liquidity alone.
	flat := Build(state, uninitializedWindow(0, 60, 2), nil)
	assert.True(t, book.Asks[0].Depth.GreaterThan(flat.Asks[0].Depth))
}

func TestBuildClampsNegativeLiquidity(t *testing.T) {
	state := flatState(0, 1000)
	ticks := uninitializedWindow(0, 60, 2)
	for i := range ticks {
		if ticks[i].Tick == 0 {
			// Inconsistent input: removes more than is active.
			ticks[i].LiquidityNet = big.NewInt(-5000)
			ticks[i].Initialized = true
		}
	}

	book := Build(state, ticks, nil)

	for i, ask := range book.Asks {
		assert.False(t, ask.Depth.IsNegative(), "ask %d depth negative: %s", i, ask.Depth)
	}
	assert.True(t, book.Asks[0].Depth.IsZero(), "clamped band should have zero depth")
}

func TestBuildZeroActiveLiquidity(t *testing.T) {
	state := flatState(0, 0)
	book := Build(state, uninitializedWindow(0, 60, 2), nil)

	require.Len(t, book.Asks, 2)
	require.Len(t, book.Bids, 3)
	for _, lvl := range append(append([]model.OrderBookLevel{}, book.Asks...), book.Bids...) {
		assert.True(t, lvl.Depth.Equal(decimal.Zero))
		assert.True(t, lvl.Price.IsPositive())
	}
}
