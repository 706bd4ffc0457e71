package models

import "time"

// Insight is one pre-aggregated analysis row from the warehouse output
// table. Rows are written by an external pipeline; this service only reads.
type Insight struct {
	ID        int64  `gorm:"primaryKey"`
	Output    string // free-form analysis text, mentions campaign names
	CreatedAt time.Time
}

// TableName keeps the warehouse table name the pipeline writes to.
func (Insight) TableName() string {
	return "output"
}
