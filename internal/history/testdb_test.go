package history

import (
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/logger"
)

func newHistoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.Exec(`CREATE TABLE history_events (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		account_number TEXT NOT NULL,
		related_account_number TEXT,
		event_type INTEGER NOT NULL,
		transaction_type INTEGER,
		transaction_status INTEGER,
		amount TEXT NOT NULL,
		performed_by TEXT,
		performed_by_service TEXT,
		details TEXT,
		source_event_id TEXT,
		created_at datetime
	)`).Error
	if err != nil {
		t.Fatalf("create history_events: %v", err)
	}
	return conn
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
