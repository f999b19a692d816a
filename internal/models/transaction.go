package models

import "time"

// Transaction is a committed point contribution from a payer.
// Points may be negative when a payer issues a correction.
type Transaction struct {
	ID        string    `json:"id"`        // unique identifier stamped on commit
	Sequence  uint64    `json:"sequence"`  // insertion order, breaks timestamp ties
	Payer     string    `json:"payer"`     // source of the points
	Points    int64     `json:"points"`    // signed amount as submitted
	Timestamp time.Time `json:"timestamp"` // used only for ordering
}
