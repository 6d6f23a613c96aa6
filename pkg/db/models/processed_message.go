package models

import "time"

// ProcessedMessage guards a consumer against applying the same message twice.
// The (consumer, message_key) pair is the primary key.
type ProcessedMessage struct {
	Consumer    string    `gorm:"column:consumer;primaryKey"`
	MessageKey  string    `gorm:"column:message_key;primaryKey"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}
