package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction says which way the price has to cross the threshold.
type Direction string

const (
	DirectionAbove Direction = "ABOVE"
	DirectionBelow Direction = "BELOW"
)

func (d Direction) Valid() bool {
	return d == DirectionAbove || d == DirectionBelow
}

// Alert is one watch condition: notify ChatID once when the price of Symbol
// crosses Threshold moving in Direction. After it fires the alert stays
// inactive forever; re-arming the same condition means creating a new alert.
type Alert struct {
	ID                uint
	Symbol            string
	Threshold         decimal.Decimal
	Direction         Direction
	ChatID            string
	Active            bool
	LastObservedPrice *decimal.Decimal
	TriggeredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ObservePrice records the price seen for this alert's symbol in the
// current cycle. It is called whether or not the alert fired.
func (a *Alert) ObservePrice(price decimal.Decimal) {
	p := price
	a.LastObservedPrice = &p
}

// MarkTriggered performs the one-way transition out of the active state.
// A no-op on an alert that already fired, so TriggeredAt is set at most once.
func (a *Alert) MarkTriggered(at time.Time) {
	if !a.Active || a.TriggeredAt != nil {
		return
	}
	t := at
	a.TriggeredAt = &t
	a.Active = false
}
