package transactions

import (
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
)

func newTransactionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE transactions (
			id TEXT PRIMARY KEY,
			type INTEGER NOT NULL,
			status INTEGER NOT NULL,
			from_account TEXT,
			to_account TEXT,
			amount TEXT NOT NULL,
			performed_by TEXT NOT NULL,
			details TEXT,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE outbox_events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			payload BLOB NOT NULL,
			created_at datetime,
			published_at datetime,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT
		)`,
	} {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create fixture table: %v", err)
		}
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestEmitter(conn *gorm.DB) outbox.Emitter {
	return outbox.NewService(outbox.NewRepository(conn), testLogger())
}

// queued decodes every outbox row in insertion order.
func queued[T any](t *testing.T, conn *gorm.DB) ([]models.OutboxEvent, []T) {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, conn.Order("rowid").Find(&rows).Error)
	data := make([]T, 0, len(rows))
	for _, row := range rows {
		var envelope outbox.PayloadEnvelope
		require.NoError(t, json.Unmarshal(row.Payload, &envelope))
		var item T
		require.NoError(t, json.Unmarshal(envelope.Data, &item))
		data = append(data, item)
	}
	return rows, data
}
