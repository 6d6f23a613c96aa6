package accounts

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newAccountsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE accounts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			balance TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at datetime,
			updated_at datetime
		)`,
		`CREATE TABLE processed_messages (
			consumer TEXT NOT NULL,
			message_key TEXT NOT NULL,
			processed_at datetime NOT NULL,
			PRIMARY KEY (consumer, message_key)
		)`,
	} {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create fixture table: %v", err)
		}
	}
	return conn
}
