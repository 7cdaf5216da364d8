package pricing

import "math/big"

// Protocol tick bounds. sqrt(1.0001^tick) stays inside a uint160 Q96
// value exactly within this range.
const (
	MinTick int32 = -887272
	MaxTick int32 = 887272
)

// Q96 is the 2^96 fixed-point scale used by sqrtPriceX96.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Per-bit multipliers for sqrt(1.0001^-2^i) in Q128, i = 0..19.
var tickRatios = [20]*big.Int{
	hexBig("fffcb933bd6fad37aa2d162d1a594001"),
	hexBig("fff97272373d413259a46990580e213a"),
	hexBig("fff2e50f5f656932ef12357cf3c7fdcc"),
	hexBig("ffe5caca7e10e4e61c3624eaa0941cd0"),
	hexBig("ffcb9843d60f6159c9db58835c926644"),
	hexBig("ff973b41fa98c081472e6896dfb254c0"),
	hexBig("ff2ea16466c96a3843ec78b326b52861"),
	hexBig("fe5dee046a99a2a811c461f1969c3053"),
	hexBig("fcbe86c7900a88aedcffc83b479aa3a4"),
	hexBig("f987a7253ac413176f2b074cf7815e54"),
	hexBig("f3392b0822b70005940c7a398e4b70f3"),
	hexBig("e7159475a2c29b7443b29c7fa6e889d9"),
	hexBig("d097f3bdfd2022b8845ad8f792aa5825"),
	hexBig("a9f746462d870fdf8a65dc1f90e061e5"),
	hexBig("70d869a156d2a1b890bb3df62baf32f7"),
	hexBig("31be135f97d08fd981231505542fcfa6"),
	hexBig("9aa508b5b7a84e1c677de54f3e99bc9"),
	hexBig("5d6af8dedb81196699c329225ee604"),
	hexBig("2216e584f5fa1ea926041bedfe98"),
	hexBig("48a170391f7dc42444e8fa2"),
}

func hexBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("pricing: bad ratio constant " + s)
	}
	return v
}

// SqrtPriceX96AtTick computes sqrt(1.0001^tick) * 2^96 in fixed point,
// avoiding the drift a floating implementation shows at extreme ticks.
// The tick must lie within [MinTick, MaxTick]; values outside the
// protocol bounds are a caller contract violation.
func SqrtPriceX96AtTick(tick int32) *big.Int {
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	ratio := new(big.Int).Lsh(big.NewInt(1), 128)
	if absTick&1 != 0 {
		ratio.Set(tickRatios[0])
	}
	for i := 1; i < len(tickRatios); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, tickRatios[i])
			ratio.Rsh(ratio, 128)
		}
	}

	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128 -> Q96, rounding up.
	remainder := new(big.Int).And(ratio, big.NewInt((1<<32)-1))
	ratio.Rsh(ratio, 32)
	if remainder.Sign() != 0 {
		ratio.Add(ratio, big.NewInt(1))
	}
	return ratio
}
