// models/models.go
package models

import (
	"time"
)

// GormRoomSnapshot is the persisted form of a room. The snapshot JSON is
// the authoritative payload; the scalar columns exist for querying. The
// controlling client and any live timer handle are deliberately not
// persisted: the controller re-binds on its next connect and timers never
// survive a restart.
type GormRoomSnapshot struct {
	ID               uint   `gorm:"primaryKey"`
	Code             string `gorm:"uniqueIndex;not null"`
	State            string `gorm:"not null"`
	StationsCount    int    `gorm:"not null"`
	RoundDurationSec int    `gorm:"not null"`
	Snapshot         string `gorm:"type:jsonb;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
