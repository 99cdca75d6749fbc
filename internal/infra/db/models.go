package db

import (
	"time"
)

// alertModel is the persistence shape of domain.Alert. Decimal fields are
// stored as strings so thresholds and prices round-trip without float drift.
type alertModel struct {
	ID                uint    `gorm:"primaryKey"`
	Symbol            string  `gorm:"size:10;not null;index:idx_alerts_active_symbol,priority:2"`
	Threshold         string  `gorm:"not null"`
	Direction         string  `gorm:"size:5;not null"`
	ChatID            string  `gorm:"size:50;not null;index"`
	Active            bool    `gorm:"index:idx_alerts_active_symbol,priority:1"`
	LastObservedPrice *string `gorm:""`
	TriggeredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (alertModel) TableName() string {
	return "alerts"
}
