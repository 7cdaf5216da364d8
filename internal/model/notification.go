package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceUpdate is emitted once per processed swap event.
type PriceUpdate struct {
	Price       decimal.Decimal `json:"price"`
	Event       SwapEventData   `json:"event"`
	PoolAddress string          `json:"pool_address"`
	ChainID     uint64          `json:"chain_id"`
	MarketID    string          `json:"market_id"`
	SessionID   string          `json:"session_id"`
	Timestamp   time.Time       `json:"timestamp"`
}

// BookUpdate is emitted after each completed order-book refresh.
type BookUpdate struct {
	Book        OrderBook `json:"book"`
	PoolAddress string    `json:"pool_address"`
	ChainID     uint64    `json:"chain_id"`
	MarketID    string    `json:"market_id"`
	SessionID   string    `json:"session_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorNote reports a failure to notification consumers. Phase names the
// lifecycle phase the listener was in when the failure occurred.
type ErrorNote struct {
	Message   string    `json:"message"`
	Phase     string    `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
}
