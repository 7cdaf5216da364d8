// Package book reconstructs an approximate bid/ask ladder from the
// discretized liquidity distribution of a V3 pool.
package book

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolBook/internal/dex"
	"poolBook/internal/model"
)

// DefaultWindowSize is the number of spacings sampled on each side of
// the current tick.
const DefaultWindowSize = 50

// Sampler reads per-tick liquidity for a window around the current
// price in a single batched round trip.
type Sampler struct {
	caller dex.BatchCaller
	logger *zap.Logger
}

// NewSampler builds a sampler on top of the batched read transport.
func NewSampler(caller dex.BatchCaller, logger *zap.Logger) *Sampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{caller: caller, logger: logger}
}

// Window returns the ordered, deduplicated grid ticks covering
// windowSize spacings on each side of centerTick. The center is aligned
// down to the spacing grid first, since only grid ticks can hold
// liquidity deltas.
func Window(centerTick, spacing int32, windowSize int) []int32 {
	if spacing <= 0 || windowSize < 0 {
		return nil
	}
	base := alignTick(centerTick, spacing)
	ticks := make([]int32, 0, 2*windowSize+1)
	for t := base - int32(windowSize)*spacing; t <= base+int32(windowSize)*spacing; t += spacing {
		ticks = append(ticks, t)
	}
	return ticks
}

// Sample issues one batched ticks() read for the window. A failed item
// degrades that tick to uninitialized instead of failing the refresh; a
// failure of the batch itself is returned to the caller.
func (s *Sampler) Sample(ctx context.Context, pool common.Address, centerTick, spacing int32, windowSize int) ([]model.TickLiquidity, error) {
	ticks := Window(centerTick, spacing, windowSize)
	if len(ticks) == 0 {
		return nil, fmt.Errorf("empty tick window: spacing=%d window=%d", spacing, windowSize)
	}

	calls := make([]ethereum.CallMsg, len(ticks))
	for i, tick := range ticks {
		data, err := dex.PackTicksCall(tick)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", tick, err)
		}
		calls[i] = ethereum.CallMsg{To: &pool, Data: data}
	}

	results, err := s.caller.BatchEthCall(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("tick batch: %w", err)
	}

	sampled := make([]model.TickLiquidity, len(ticks))
	for i, tick := range ticks {
		sampled[i] = model.TickLiquidity{Tick: tick, LiquidityNet: big.NewInt(0)}

		if results[i].Err != nil {
			s.logger.Warn("tick read degraded",
				zap.Int32("tick", tick), zap.Error(results[i].Err))
			continue
		}
		net, initialized, err := dex.UnpackTickLiquidity(results[i].Output)
		if err != nil {
			s.logger.Warn("tick decode degraded",
				zap.Int32("tick", tick), zap.Error(err))
			continue
		}
		sampled[i].LiquidityNet = net
		sampled[i].Initialized = initialized
	}

	return sampled, nil
}

// alignTick floors a tick to the spacing grid (toward negative
// infinity, matching tick compression).
func alignTick(tick, spacing int32) int32 {
	aligned := tick / spacing * spacing
	if tick < 0 && tick%spacing != 0 {
		aligned -= spacing
	}
	return aligned
}
