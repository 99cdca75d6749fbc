package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cryptoalerts/internal/domain"
	"cryptoalerts/internal/usecase"
)

type memoryRepo struct {
	mu     sync.Mutex
	alerts map[uint]*domain.Alert
	nextID uint
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{alerts: make(map[uint]*domain.Alert)}
}

func (r *memoryRepo) Create(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	alert.ID = r.nextID
	a := *alert
	r.alerts[a.ID] = &a
	return nil
}

func (r *memoryRepo) ListActive(ctx context.Context) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Alert
	for _, a := range r.alerts {
		if a.Active {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListActiveByChatID(ctx context.Context, chatID string) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Alert
	for _, a := range r.alerts {
		if a.Active && a.ChatID == chatID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, alertID uint) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *memoryRepo) Delete(ctx context.Context, alertID uint, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok || a.ChatID != chatID {
		return domain.ErrNotFound
	}
	delete(r.alerts, alertID)
	return nil
}

func (r *memoryRepo) Save(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := *alert
	r.alerts[a.ID] = &a
	return nil
}

type staticPriceSource struct {
	prices map[string]decimal.Decimal
}

func (s *staticPriceSource) FetchPrices(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		if price, ok := s.prices[symbol]; ok {
			out[symbol] = price
		}
	}
	return out
}

type okNotifier struct{ result bool }

func (n *okNotifier) Send(ctx context.Context, chatID, text string) bool { return n.result }

func newTestRouter(t *testing.T, repo *memoryRepo, source domain.PriceSource, notifier domain.Notifier) (*gin.Engine, *IPRateLimiter) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	uc := usecase.NewAlertUsecase(repo, notifier)
	handlers := NewHandlers(uc, source, nil, logger)
	hub := NewPriceStreamHub(logger)
	limiter := NewIPRateLimiter(1000)
	t.Cleanup(limiter.Stop)
	return NewRouter(handlers, hub, limiter, logger), limiter
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, newMemoryRepo(), &staticPriceSource{}, &okNotifier{result: true})
	w := doJSON(t, router, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestCreateAlert(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"symbol":"BTC","threshold":45000,"direction":"ABOVE","chat_id":"12345"}`, http.StatusCreated},
		{"threshold as decimal", `{"symbol":"eth","threshold":2500.5,"direction":"below","chat_id":"-100987"}`, http.StatusCreated},
		{"invalid symbol", `{"symbol":"BTC1","threshold":100,"direction":"ABOVE","chat_id":"12345"}`, http.StatusBadRequest},
		{"negative threshold", `{"symbol":"BTC","threshold":-1,"direction":"ABOVE","chat_id":"12345"}`, http.StatusBadRequest},
		{"bad direction", `{"symbol":"BTC","threshold":100,"direction":"UP","chat_id":"12345"}`, http.StatusBadRequest},
		{"bad chat id", `{"symbol":"BTC","threshold":100,"direction":"ABOVE","chat_id":"a b"}`, http.StatusBadRequest},
		{"malformed json", `{"symbol":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, newMemoryRepo(), &staticPriceSource{}, &okNotifier{result: true})
			w := doJSON(t, router, http.MethodPost, "/api/alerts", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusCreated {
				var resp struct {
					ID     uint   `json:"id"`
					Active bool   `json:"active"`
					Symbol string `json:"symbol"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("bad response body: %v", err)
				}
				if resp.ID == 0 || !resp.Active {
					t.Errorf("response = %+v, want assigned id and active=true", resp)
				}
			}
		})
	}
}

func TestListAlerts(t *testing.T) {
	repo := newMemoryRepo()
	router, _ := newTestRouter(t, repo, &staticPriceSource{}, &okNotifier{result: true})

	doJSON(t, router, http.MethodPost, "/api/alerts", `{"symbol":"BTC","threshold":100,"direction":"ABOVE","chat_id":"alice"}`)
	doJSON(t, router, http.MethodPost, "/api/alerts", `{"symbol":"ETH","threshold":200,"direction":"BELOW","chat_id":"bob"}`)

	t.Run("missing chat_id", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/alerts", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("scoped to chat", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/alerts?chat_id=alice", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var alerts []alertResponse
		if err := json.Unmarshal(w.Body.Bytes(), &alerts); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if len(alerts) != 1 || alerts[0].Symbol != "BTC" {
			t.Errorf("alerts = %+v, want alice's BTC alert only", alerts)
		}
	})
}

func TestDeleteAlert(t *testing.T) {
	repo := newMemoryRepo()
	router, _ := newTestRouter(t, repo, &staticPriceSource{}, &okNotifier{result: true})
	doJSON(t, router, http.MethodPost, "/api/alerts", `{"symbol":"BTC","threshold":100,"direction":"ABOVE","chat_id":"alice"}`)

	t.Run("wrong chat gets 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, "/api/alerts/1?chat_id=mallory", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("owner deletes", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, "/api/alerts/1?chat_id=alice", "")
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
		}
	})
}

func TestGetPrices(t *testing.T) {
	source := &staticPriceSource{prices: map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(67000),
		"ETH": decimal.NewFromInt(3500),
	}}
	router, _ := newTestRouter(t, newMemoryRepo(), source, &okNotifier{result: true})

	t.Run("no symbols", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/prices", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("invalid symbol", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/prices?symbols=BTC!", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("returns fetched prices", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/prices?symbols=btc&symbols=ETH", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
		}
		var prices map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &prices); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if prices["BTC"] != "67000" || prices["ETH"] != "3500" {
			t.Errorf("prices = %v", prices)
		}
	})
}

func TestSetupTelegram(t *testing.T) {
	t.Run("notifier failure maps to 502", func(t *testing.T) {
		router, _ := newTestRouter(t, newMemoryRepo(), &staticPriceSource{}, &okNotifier{result: false})
		w := doJSON(t, router, http.MethodPost, "/api/telegram/setup", `{"chat_id":"12345"}`)
		if w.Code != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		router, _ := newTestRouter(t, newMemoryRepo(), &staticPriceSource{}, &okNotifier{result: true})
		w := doJSON(t, router, http.MethodPost, "/api/telegram/setup", `{"chat_id":"12345"}`)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
		}
	})
}
