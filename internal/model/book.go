package model

import "github.com/shopspring/decimal"

// OrderBookLevel is a single (price, depth) band. Depth is expressed in
// base-token (token0) units.
type OrderBookLevel struct {
	Price decimal.Decimal `json:"price"`
	Depth decimal.Decimal `json:"depth"`
}

// OrderBook is the reconstructed ladder around the pool's current price.
// Bids are sorted descending by price and sit below MidPrice; asks are
// sorted ascending and sit above it. Depth beyond the sampled window is
// not represented, so the outermost bands are lower bounds.
type OrderBook struct {
	Bids     []OrderBookLevel `json:"bids"`
	Asks     []OrderBookLevel `json:"asks"`
	MidTick  int32            `json:"mid_tick"`
	MidPrice decimal.Decimal  `json:"mid_price"`
}
