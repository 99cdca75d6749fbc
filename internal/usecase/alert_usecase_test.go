package usecase

import (
	"context"
	"errors"
	"testing"

	"cryptoalerts/internal/domain"
)

func TestCreateAlert_Validation(t *testing.T) {
	tests := []struct {
		name      string
		symbol    string
		threshold string
		direction string
		chatID    string
		wantErr   error
	}{
		{"valid above", "btc", "45000", "ABOVE", "12345", nil},
		{"valid below lowercased direction", "ETH", "2500.50", "below", "-100987", nil},
		{"empty symbol", "", "100", "ABOVE", "12345", ErrInvalidSymbol},
		{"numeric symbol", "BTC1", "100", "ABOVE", "12345", ErrInvalidSymbol},
		{"symbol too long", "ABCDEFGHIJK", "100", "ABOVE", "12345", ErrInvalidSymbol},
		{"zero threshold", "BTC", "0", "ABOVE", "12345", ErrInvalidThreshold},
		{"negative threshold", "BTC", "-5", "ABOVE", "12345", ErrInvalidThreshold},
		{"unparseable threshold", "BTC", "lots", "ABOVE", "12345", ErrInvalidThreshold},
		{"bad direction", "BTC", "100", "SIDEWAYS", "12345", ErrInvalidDirection},
		{"empty chat id", "BTC", "100", "ABOVE", "", ErrInvalidChatID},
		{"chat id with spaces", "BTC", "100", "ABOVE", "12 345", ErrInvalidChatID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := NewAlertUsecase(newFakeAlertRepo(), &fakeNotifier{result: true})
			alert, err := uc.CreateAlert(context.Background(), tt.symbol, tt.threshold, tt.direction, tt.chatID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateAlert error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if !alert.Active {
				t.Error("new alert must start active")
			}
			if alert.LastObservedPrice != nil || alert.TriggeredAt != nil {
				t.Error("new alert must have no observation or trigger state")
			}
			if alert.Symbol != "BTC" && alert.Symbol != "ETH" {
				t.Errorf("symbol not normalized: %q", alert.Symbol)
			}
		})
	}
}

func TestDeleteAlert_ScopedByChatID(t *testing.T) {
	repo := newFakeAlertRepo()
	uc := NewAlertUsecase(repo, &fakeNotifier{result: true})
	alert, err := uc.CreateAlert(context.Background(), "BTC", "100", "ABOVE", "owner")
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}

	if err := uc.DeleteAlert(context.Background(), alert.ID, "intruder"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("cross-chat delete error = %v, want ErrAlertNotFound", err)
	}
	if err := uc.DeleteAlert(context.Background(), alert.ID, "owner"); err != nil {
		t.Errorf("owner delete error = %v", err)
	}
}

func TestListAlerts_ReturnsOnlyOwnActive(t *testing.T) {
	repo := newFakeAlertRepo(
		domain.Alert{ID: 1, Symbol: "BTC", Threshold: dec("100"), Direction: domain.DirectionAbove, ChatID: "a", Active: true},
		domain.Alert{ID: 2, Symbol: "ETH", Threshold: dec("200"), Direction: domain.DirectionAbove, ChatID: "b", Active: true},
		domain.Alert{ID: 3, Symbol: "SOL", Threshold: dec("50"), Direction: domain.DirectionBelow, ChatID: "a", Active: false},
	)
	uc := NewAlertUsecase(repo, &fakeNotifier{result: true})

	alerts, err := uc.ListAlerts(context.Background(), "a")
	if err != nil {
		t.Fatalf("ListAlerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != 1 {
		t.Errorf("alerts = %+v, want only alert 1", alerts)
	}
}

func TestSetupTelegram(t *testing.T) {
	t.Run("send success", func(t *testing.T) {
		uc := NewAlertUsecase(newFakeAlertRepo(), &fakeNotifier{result: true})
		if err := uc.SetupTelegram(context.Background(), "12345"); err != nil {
			t.Errorf("SetupTelegram error = %v", err)
		}
	})
	t.Run("send failure surfaces", func(t *testing.T) {
		uc := NewAlertUsecase(newFakeAlertRepo(), &fakeNotifier{result: false})
		if err := uc.SetupTelegram(context.Background(), "12345"); !errors.Is(err, ErrSetupSendFailed) {
			t.Errorf("SetupTelegram error = %v, want ErrSetupSendFailed", err)
		}
	})
	t.Run("invalid chat id", func(t *testing.T) {
		uc := NewAlertUsecase(newFakeAlertRepo(), &fakeNotifier{result: true})
		if err := uc.SetupTelegram(context.Background(), "no spaces allowed"); !errors.Is(err, ErrInvalidChatID) {
			t.Errorf("SetupTelegram error = %v, want ErrInvalidChatID", err)
		}
	})
}
