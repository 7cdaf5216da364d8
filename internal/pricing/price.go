// Package pricing provides pure conversions between tick indices,
// square-root prices, and human-readable prices adjusted for token
// decimals. Prices are token0 denominated in token1 and strictly
// increase with the tick.
package pricing

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// PriceAtTick converts a tick to the decimal-adjusted price of token0
// in token1: 1.0001^tick * 10^(decimals0 - decimals1).
func PriceAtTick(tick int32, decimals0, decimals1 uint8) decimal.Decimal {
	price := math.Pow(1.0001, float64(tick)) * decimalsFactor(decimals0, decimals1)
	return decimal.NewFromFloat(price)
}

// PriceFromSqrtX96 derives the decimal-adjusted price from a Q96
// square-root price, as carried by swap events.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) decimal.Decimal {
	ratio := new(big.Float).SetInt(sqrtPriceX96)
	ratio.Quo(ratio, new(big.Float).SetInt(Q96))
	ratio.Mul(ratio, ratio)
	raw, _ := ratio.Float64()
	return decimal.NewFromFloat(raw * decimalsFactor(decimals0, decimals1))
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) as a float, without the Q96
// scale. Used for band amount computation where float precision is
// sufficient at tick granularity.
func SqrtRatioAtTick(tick int32) float64 {
	return math.Pow(1.0001, float64(tick)/2)
}

func decimalsFactor(decimals0, decimals1 uint8) float64 {
	return math.Pow(10, float64(int(decimals0)-int(decimals1)))
}
