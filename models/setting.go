package models

import "time"

// Setting is a key/value tunable such as points_per_dollar or tier thresholds.
type Setting struct {
	Key         string    `gorm:"primaryKey;size:100" json:"key"`
	Value       string    `gorm:"not null" json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}
