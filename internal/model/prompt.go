package model

import "time"

// Prompt is the single mutable personality record. There is exactly one live
// row per name; every rewrite overwrites Content in full, no history is kept.
type Prompt struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
