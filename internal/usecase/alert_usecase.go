package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"cryptoalerts/internal/domain"
)

var (
	ErrInvalidSymbol    = errors.New("invalid crypto symbol")
	ErrInvalidThreshold = errors.New("invalid threshold price")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidChatID    = errors.New("invalid telegram chat id")
	ErrAlertNotFound    = errors.New("alert not found")
	ErrSetupSendFailed  = errors.New("failed to send test message")
)

// AlertUsecase backs the CRUD surface. It owns input validation; the engine
// trusts whatever reaches the store.
type AlertUsecase struct {
	alerts   domain.AlertRepository
	notifier domain.Notifier
}

func NewAlertUsecase(alerts domain.AlertRepository, notifier domain.Notifier) *AlertUsecase {
	return &AlertUsecase{alerts: alerts, notifier: notifier}
}

func (u *AlertUsecase) CreateAlert(ctx context.Context, symbol, threshold, direction, chatID string) (*domain.Alert, error) {
	normalizedSymbol, ok := normalizeSymbol(symbol)
	if !ok {
		return nil, ErrInvalidSymbol
	}

	decThreshold, err := decimal.NewFromString(strings.TrimSpace(threshold))
	if err != nil || !decThreshold.IsPositive() {
		return nil, ErrInvalidThreshold
	}

	dir := domain.Direction(strings.ToUpper(strings.TrimSpace(direction)))
	if !dir.Valid() {
		return nil, ErrInvalidDirection
	}

	if !validChatID(chatID) {
		return nil, ErrInvalidChatID
	}

	alert := &domain.Alert{
		Symbol:    normalizedSymbol,
		Threshold: decThreshold,
		Direction: dir,
		ChatID:    chatID,
		Active:    true,
	}
	if err := u.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (u *AlertUsecase) ListAlerts(ctx context.Context, chatID string) ([]domain.Alert, error) {
	if !validChatID(chatID) {
		return nil, ErrInvalidChatID
	}
	return u.alerts.ListActiveByChatID(ctx, chatID)
}

func (u *AlertUsecase) DeleteAlert(ctx context.Context, alertID uint, chatID string) error {
	if err := u.alerts.Delete(ctx, alertID, chatID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrAlertNotFound
		}
		return err
	}
	return nil
}

// SetupTelegram validates the destination by sending a greeting through the
// notifier, proving the chat is reachable before any alert depends on it.
func (u *AlertUsecase) SetupTelegram(ctx context.Context, chatID string) error {
	if !validChatID(chatID) {
		return ErrInvalidChatID
	}
	text := "🔔 <b>Crypto Price Alert Assistant</b>\n\nYour Telegram integration is now active! You'll receive price alerts here."
	if !u.notifier.Send(ctx, chatID, text) {
		return ErrSetupSendFailed
	}
	return nil
}

// ValidateSymbol is the symbol rule shared with the prices endpoint.
func ValidateSymbol(symbol string) (string, error) {
	normalized, ok := normalizeSymbol(symbol)
	if !ok {
		return "", ErrInvalidSymbol
	}
	return normalized, nil
}

func normalizeSymbol(symbol string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || len(s) > 10 {
		return "", false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return "", false
		}
	}
	return s, true
}

func validChatID(chatID string) bool {
	if chatID == "" {
		return false
	}
	stripped := strings.NewReplacer("-", "", "@", "").Replace(chatID)
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
