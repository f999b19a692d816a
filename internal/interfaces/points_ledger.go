package interfaces

import (
	"context"
	"time"

	"github.com/sheikh-saqib/points-ledger/internal/models"
)

// PointsLedger is what request handlers need from the ledger.
type PointsLedger interface {
	AddTransaction(ctx context.Context, payer string, points int64, timestamp time.Time) (models.Transaction, error)
	Spend(ctx context.Context, pointsToSpend int64) (map[string]int64, error)
	Balances() map[string]int64
	Total() int64
	Transactions() []models.Transaction
}
