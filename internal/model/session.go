package model

import "time"

// ChatSession is created lazily on the first turn of a conversation and is
// immutable afterwards.
type ChatSession struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:128;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
