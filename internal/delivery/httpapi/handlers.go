package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cryptoalerts/internal/domain"
	"cryptoalerts/internal/infra/cache"
	"cryptoalerts/internal/usecase"
)

type Handlers struct {
	alerts *usecase.AlertUsecase
	prices domain.PriceSource
	cache  *cache.PriceCache // nil disables caching
	logger *zap.Logger
}

func NewHandlers(alerts *usecase.AlertUsecase, prices domain.PriceSource, cache *cache.PriceCache, logger *zap.Logger) *Handlers {
	return &Handlers{alerts: alerts, prices: prices, cache: cache, logger: logger}
}

type cryptoInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

var popularCryptos = []cryptoInfo{
	{"BTC", "Bitcoin"},
	{"ETH", "Ethereum"},
	{"ADA", "Cardano"},
	{"DOT", "Polkadot"},
	{"LINK", "Chainlink"},
	{"UNI", "Uniswap"},
	{"AAVE", "Aave"},
	{"SOL", "Solana"},
	{"MATIC", "Polygon"},
	{"AVAX", "Avalanche"},
}

type alertResponse struct {
	ID                uint       `json:"id"`
	Symbol            string     `json:"symbol"`
	Threshold         string     `json:"threshold"`
	Direction         string     `json:"direction"`
	ChatID            string     `json:"chat_id"`
	Active            bool       `json:"active"`
	LastObservedPrice *string    `json:"last_observed_price,omitempty"`
	TriggeredAt       *time.Time `json:"triggered_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toAlertResponse(alert domain.Alert) alertResponse {
	var last *string
	if alert.LastObservedPrice != nil {
		s := alert.LastObservedPrice.String()
		last = &s
	}
	return alertResponse{
		ID:                alert.ID,
		Symbol:            alert.Symbol,
		Threshold:         alert.Threshold.String(),
		Direction:         string(alert.Direction),
		ChatID:            alert.ChatID,
		Active:            alert.Active,
		LastObservedPrice: last,
		TriggeredAt:       alert.TriggeredAt,
		CreatedAt:         alert.CreatedAt,
	}
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) ListCryptos(c *gin.Context) {
	c.JSON(http.StatusOK, popularCryptos)
}

func (h *Handlers) GetPrices(c *gin.Context) {
	symbols := c.QueryArray("symbols[]")
	if len(symbols) == 0 {
		symbols = c.QueryArray("symbols")
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No symbols provided"})
		return
	}

	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		s, err := usecase.ValidateSymbol(symbol)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid symbol: " + symbol})
			return
		}
		normalized = append(normalized, s)
	}

	key := pricesCacheKey(normalized)
	if cached, ok := h.cache.Get(c.Request.Context(), key); ok {
		c.Data(http.StatusOK, "application/json", []byte(cached))
		return
	}

	prices := h.prices.FetchPrices(c.Request.Context(), normalized)
	body, err := json.Marshal(pricesToStrings(prices))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode prices"})
		return
	}
	h.cache.Set(c.Request.Context(), key, string(body))
	c.Data(http.StatusOK, "application/json", body)
}

type createAlertRequest struct {
	Symbol    string      `json:"symbol"`
	Threshold json.Number `json:"threshold"`
	Direction string      `json:"direction"`
	ChatID    string      `json:"chat_id"`
}

func (h *Handlers) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	alert, err := h.alerts.CreateAlert(c.Request.Context(), req.Symbol, req.Threshold.String(), req.Direction, req.ChatID)
	if err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) {
			status = http.StatusInternalServerError
			h.logger.Error("create alert failed", zap.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toAlertResponse(*alert))
}

func (h *Handlers) ListAlerts(c *gin.Context) {
	chatID := c.Query("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id parameter required"})
		return
	}

	alerts, err := h.alerts.ListAlerts(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidChatID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("list alerts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve alerts"})
		return
	}

	out := make([]alertResponse, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, toAlertResponse(alert))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handlers) DeleteAlert(c *gin.Context) {
	chatID := c.Query("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id parameter required"})
		return
	}

	alertID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	if err := h.alerts.DeleteAlert(c.Request.Context(), uint(alertID), chatID); err != nil {
		if errors.Is(err, usecase.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.logger.Error("delete alert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted successfully"})
}

type setupTelegramRequest struct {
	ChatID string `json:"chat_id"`
}

func (h *Handlers) SetupTelegram(c *gin.Context) {
	var req setupTelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat_id required"})
		return
	}

	if err := h.alerts.SetupTelegram(c.Request.Context(), req.ChatID); err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidChatID):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrSetupSendFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			h.logger.Error("telegram setup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Telegram setup failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Telegram setup successful"})
}

func isValidationError(err error) bool {
	return errors.Is(err, usecase.ErrInvalidSymbol) ||
		errors.Is(err, usecase.ErrInvalidThreshold) ||
		errors.Is(err, usecase.ErrInvalidDirection) ||
		errors.Is(err, usecase.ErrInvalidChatID)
}

func pricesCacheKey(symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)
	return "prices:" + strings.Join(sorted, ",")
}

func pricesToStrings(prices map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(prices))
	for symbol, price := range prices {
		out[symbol] = price.String()
	}
	return out
}
