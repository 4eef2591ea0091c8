package domain

import "time"

// Idempotency records the response of a completed workflow trigger, keyed by
// (operation, key). A client retrying a trigger with the same Idempotency-Key
// gets the stored summary back instead of running the scan again.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Operation string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_operation_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_operation_key,priority:2"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	Body      string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
