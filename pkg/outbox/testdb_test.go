package outbox

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range []string{
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
		`CREATE TABLE outbox_dlq (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			aggregate_type TEXT NOT NULL,
			aggregate_id TEXT NOT NULL,
			payload_json BLOB NOT NULL,
			error_reason TEXT NOT NULL,
			error_message TEXT,
			attempt_count INTEGER NOT NULL DEFAULT 0,
			failed_at datetime,
			created_at datetime
		)`,
	} {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create fixture table: %v", err)
		}
	}
	return conn
}
