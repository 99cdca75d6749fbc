package domain

import "github.com/shopspring/decimal"

// ShouldTrigger reports whether the move from last to current crosses the
// threshold in the given direction.
//
// The check is edge-triggered: while the price stays past the threshold the
// alert does not keep firing, because a crossing requires the previous
// observation to have been on the other side. A nil last means the alert has
// never been evaluated; in that case first contact with the trigger side
// counts as a crossing, so an alert created when the price is already past
// its threshold fires on the first cycle instead of waiting for the price to
// swing back and cross again.
func ShouldTrigger(direction Direction, threshold decimal.Decimal, last *decimal.Decimal, current decimal.Decimal) bool {
	switch direction {
	case DirectionAbove:
		return current.GreaterThanOrEqual(threshold) && (last == nil || last.LessThan(threshold))
	case DirectionBelow:
		return current.LessThanOrEqual(threshold) && (last == nil || last.GreaterThan(threshold))
	default:
		return false
	}
}
