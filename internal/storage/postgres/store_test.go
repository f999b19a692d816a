package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *EventStore {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	table := fmt.Sprintf("ledger_events_test_%d", time.Now().UnixNano())
	store := NewPostgresEventStore(db, table)
	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(func() {
		_, _ = db.Exec("DROP TABLE IF EXISTS " + store.table)
	})
	return store
}

func TestNewPostgresEventStoreQuotesTable(t *testing.T) {
	store := NewPostgresEventStore(nil, "")
	require.Equal(t, `"ledger_events"`, store.table)

	store = NewPostgresEventStore(nil, `weird"name`)
	require.Equal(t, `"weird""name"`, store.table)
}

func TestEventStorePublish(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx, "points.spent", map[string]int64{"DANNON": -100}))
	require.NoError(t, store.Publish(ctx, "points.spent", map[string]int64{"MILLER": -50}))
	require.NoError(t, store.Publish(ctx, "points.transaction_added", map[string]any{"payer": "DANNON"}))

	count, err := store.CountByTopic(ctx, "points.spent")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestEventStorePublishRejectsUnencodable(t *testing.T) {
	store := NewPostgresEventStore(nil, "")
	err := store.Publish(context.Background(), "t", make(chan int))
	require.ErrorContains(t, err, "encode event")
}
