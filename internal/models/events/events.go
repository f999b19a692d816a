// Package events holds the payloads the ledger publishes after each commit.
//
// Events are published after the ledger lock is released, so concurrent
// changes can reach a sink in a different order than they were committed.
// CommitSequence is shared by both event types and increases with every
// commit; consumers that need commit order sort by it.
package events

import (
	"time"

	"github.com/sheikh-saqib/points-ledger/internal/models"
)

const (
	TopicTransactionAdded = "points.transaction_added"
	TopicPointsSpent      = "points.spent"
)

// TransactionAdded is emitted after a transaction has been committed to the log.
type TransactionAdded struct {
	EventID        string    `json:"event_id"`
	CommitSequence uint64    `json:"commit_sequence"`
	TransactionID  string    `json:"transaction_id"`
	Sequence       uint64    `json:"sequence"`
	Payer          string    `json:"payer"`
	Points         int64     `json:"points"`
	Timestamp      time.Time `json:"timestamp"`
	PayerBalance   int64     `json:"payer_balance"`
	TotalPoints    int64     `json:"total_points"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// PointsSpent is emitted after a spend has been applied to the balances.
type PointsSpent struct {
	EventID        string             `json:"event_id"`
	CommitSequence uint64             `json:"commit_sequence"`
	Requested      int64              `json:"requested"`
	Deltas         map[string]int64   `json:"deltas"`
	Deductions     []models.Deduction `json:"deductions"`
	TotalPoints    int64              `json:"total_points"`
	OccurredAt     time.Time          `json:"occurred_at"`
}
