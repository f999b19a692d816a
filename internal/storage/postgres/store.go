package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/points-ledger/internal/interfaces"
)

// DefaultTable is used when no table name is configured.
const DefaultTable = "ledger_events"

// EventStore writes ledger events into a Postgres table so downstream jobs can
// consume them. It is a sink only; the ledger never reads its state back.
type EventStore struct {
	db    *sql.DB
	table string // quoted identifier
	now   func() time.Time
}

// Open connects to Postgres using the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresEventStore writes into table, or DefaultTable when it is empty.
func NewPostgresEventStore(db *sql.DB, table string) *EventStore {
	if table == "" {
		table = DefaultTable
	}
	return &EventStore{
		db:    db,
		table: pq.QuoteIdentifier(table),
		now:   time.Now,
	}
}

// EnsureSchema creates the events table when it does not exist yet.
func (p *EventStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	topic TEXT NOT NULL,
	payload JSONB NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
)`, p.table)

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", p.table, err)
	}
	return nil
}

// Publish inserts one row per event.
func (p *EventStore) Publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, topic, payload, occurred_at) VALUES ($1, $2, $3, $4)`, p.table)

	_, err = p.db.ExecContext(ctx, query, uuid.NewString(), topic, string(payload), p.now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("insert event (%s): %w", pqErr.Code.Name(), err)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CountByTopic returns how many events of topic have been recorded.
func (p *EventStore) CountByTopic(ctx context.Context, topic string) (int, error) {
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE topic = $1`, p.table)

	var count int
	if err := p.db.QueryRowContext(ctx, query, topic).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

var _ interfaces.EventPublisher = (*EventStore)(nil)
