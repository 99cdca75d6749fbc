package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) error
	ListActive(ctx context.Context) ([]Alert, error)
	ListActiveByChatID(ctx context.Context, chatID string) ([]Alert, error)
	Get(ctx context.Context, alertID uint) (*Alert, error)
	Delete(ctx context.Context, alertID uint, chatID string) error
	Save(ctx context.Context, alert *Alert) error
}

// PriceSource fetches current USD prices for a set of symbols. It never
// returns an error: a symbol missing from the result map means its price is
// unavailable this cycle and the caller is expected to tolerate that.
type PriceSource interface {
	FetchPrices(ctx context.Context, symbols []string) map[string]decimal.Decimal
}

// Notifier delivers a message to a chat. It reports acceptance as a bool and
// never returns an error; the caller decides what a failed delivery means.
type Notifier interface {
	Send(ctx context.Context, chatID, text string) bool
}
