package storage

import (
	"time"

	"poolBook/internal/model"
)

// FeedRecord is one notification written to the feed dump. Exactly one
// of Price, Book, and Error is set, discriminated by Type.
type FeedRecord struct {
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Price     *model.PriceUpdate `json:"price,omitempty"`
	Book      *model.BookUpdate  `json:"book,omitempty"`
	Error     *model.ErrorNote   `json:"error,omitempty"`
}

// Feed defines a sink for notification records.
type Feed interface {
	PutRecord(record FeedRecord) error
}

// PriceRecord wraps a price update for the feed.
func PriceRecord(u model.PriceUpdate) FeedRecord {
	return FeedRecord{Type: "price", Timestamp: u.Timestamp, Price: &u}
}

// BookRecord wraps an order-book update for the feed.
func BookRecord(u model.BookUpdate) FeedRecord {
	return FeedRecord{Type: "book", Timestamp: u.Timestamp, Book: &u}
}

// ErrorRecord wraps an error notification for the feed.
func ErrorRecord(n model.ErrorNote) FeedRecord {
	return FeedRecord{Type: "error", Timestamp: n.Timestamp, Error: &n}
}
