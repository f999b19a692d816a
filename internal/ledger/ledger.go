package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/points-ledger/internal/interfaces"
	"github.com/sheikh-saqib/points-ledger/internal/models"
	"github.com/sheikh-saqib/points-ledger/internal/models/events"
)

var (
	ErrInvalidPayer       = errors.New("ledger: payer must not be empty")
	ErrInvalidAmount      = errors.New("ledger: points to spend must be positive")
	ErrInsufficientPoints = errors.New("ledger: insufficient points")
	ErrPointsOverflow     = errors.New("ledger: points would overflow the balance")
)

// InsufficientPointsError is returned by Spend when the request exceeds the
// points currently available. It matches ErrInsufficientPoints with errors.Is.
type InsufficientPointsError struct {
	Requested int64
	Available int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("ledger: insufficient points: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientPointsError) Is(target error) bool {
	return target == ErrInsufficientPoints
}

// Ledger holds the ordered transaction log together with the balances derived
// from it. A single mutex guards all three pieces of state so every operation
// moves from one consistent snapshot to the next.
type Ledger struct {
	mu            sync.Mutex
	log           []models.Transaction // sorted by timestamp, ties in insertion order
	payerBalances map[string]int64     // running balance per payer, may go negative
	totalPoints   int64                // always the sum of payerBalances
	nextSequence  uint64
	nextCommit    uint64 // stamped on every event, in commit order

	publisher interfaces.EventPublisher // optional sink for ledger events
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPublisher installs a sink that receives an event after every committed change.
func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

// WithLogger overrides the logger used to report publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		log:           make([]models.Transaction, 0),
		payerBalances: make(map[string]int64),
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddTransaction commits a contribution from payer to the log and credits its
// balance. Negative points are accepted as corrections and the resulting
// balances are never checked for sign. An add that would push the payer
// balance or the total outside the int64 range fails with ErrPointsOverflow
// and leaves the ledger untouched.
func (l *Ledger) AddTransaction(ctx context.Context, payer string, points int64, timestamp time.Time) (models.Transaction, error) {
	if payer == "" {
		return models.Transaction{}, ErrInvalidPayer
	}

	l.mu.Lock()
	if addOverflows(l.totalPoints, points) || addOverflows(l.payerBalances[payer], points) {
		l.mu.Unlock()
		return models.Transaction{}, ErrPointsOverflow
	}

	l.nextSequence++
	tx := models.Transaction{
		ID:        uuid.NewString(),
		Sequence:  l.nextSequence,
		Payer:     payer,
		Points:    points,
		Timestamp: timestamp,
	}

	l.totalPoints += points
	l.payerBalances[payer] += points
	l.insert(tx)

	l.nextCommit++
	event := events.TransactionAdded{
		EventID:        uuid.NewString(),
		CommitSequence: l.nextCommit,
		TransactionID:  tx.ID,
		Sequence:       tx.Sequence,
		Payer:          tx.Payer,
		Points:         tx.Points,
		Timestamp:      tx.Timestamp,
		PayerBalance:   l.payerBalances[payer],
		TotalPoints:    l.totalPoints,
		OccurredAt:     l.now().UTC(),
	}
	l.mu.Unlock()

	l.publish(ctx, events.TopicTransactionAdded, event)
	return tx, nil
}

func addOverflows(a, b int64) bool {
	return (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b)
}

// insert places tx after every entry with an equal or earlier timestamp.
func (l *Ledger) insert(tx models.Transaction) {
	i := sort.Search(len(l.log), func(i int) bool {
		return l.log[i].Timestamp.After(tx.Timestamp)
	})
	l.log = slices.Insert(l.log, i, tx)
}

// Spend deducts pointsToSpend from the oldest transactions first and returns
// the amount taken from each payer as a negative delta.
//
// The walk always starts at the oldest entry of the log. A transaction whose
// points cover what is left absorbs the remainder and ends the walk; any other
// transaction is consumed in full, including zero and negative corrections.
func (l *Ledger) Spend(ctx context.Context, pointsToSpend int64) (map[string]int64, error) {
	if pointsToSpend <= 0 {
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()
	if pointsToSpend > l.totalPoints {
		available := l.totalPoints
		l.mu.Unlock()
		return nil, &InsufficientPointsError{Requested: pointsToSpend, Available: available}
	}

	response := make(map[string]int64)
	deductions := make([]models.Deduction, 0)
	remaining := pointsToSpend

	for _, tx := range l.log {
		if tx.Points >= remaining {
			deductions = append(deductions, l.deduct(tx, remaining, response))
			break
		}
		deductions = append(deductions, l.deduct(tx, tx.Points, response))
		remaining -= tx.Points
	}

	l.nextCommit++
	event := events.PointsSpent{
		EventID:        uuid.NewString(),
		CommitSequence: l.nextCommit,
		Requested:      pointsToSpend,
		Deltas:         maps.Clone(response),
		Deductions:     deductions,
		TotalPoints:    l.totalPoints,
		OccurredAt:     l.now().UTC(),
	}
	l.mu.Unlock()

	l.publish(ctx, events.TopicPointsSpent, event)
	return response, nil
}

// deduct charges points to the payer of tx. Callers must hold l.mu.
func (l *Ledger) deduct(tx models.Transaction, points int64, response map[string]int64) models.Deduction {
	l.payerBalances[tx.Payer] -= points
	l.totalPoints -= points
	response[tx.Payer] -= points
	return models.Deduction{
		TransactionID: tx.ID,
		Payer:         tx.Payer,
		Points:        points,
	}
}

// Balances returns a copy of the running balance of every payer seen so far.
func (l *Ledger) Balances() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.payerBalances)
}

// Total returns the points currently available to spend.
func (l *Ledger) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalPoints
}

// Transactions returns a copy of the log in spend order.
func (l *Ledger) Transactions() []models.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.log)
}

func (l *Ledger) publish(ctx context.Context, topic string, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, topic, event); err != nil {
		l.logger.WarnContext(ctx, "failed to publish ledger event", "topic", topic, "error", err)
	}
}

var _ interfaces.PointsLedger = (*Ledger)(nil)
