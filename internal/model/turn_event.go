package model

import "time"

// TurnEvent is a telemetry row describing one reply turn. Events are queued
// on RabbitMQ and persisted by a background worker; they never carry prompt
// content.
type TurnEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  string    `gorm:"size:36;index" json:"session_id"`
	Learned    bool      `json:"learned"`
	Outcome    string    `gorm:"size:16;not null" json:"outcome"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
