package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CoinMarketCapClient is the primary, credentialed price provider.
type CoinMarketCapClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewCoinMarketCapClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *CoinMarketCapClient {
	return &CoinMarketCapClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Configured reports whether an API key is present. Without one the whole
// provider is skipped rather than attempted.
func (c *CoinMarketCapClient) Configured() bool {
	return c.apiKey != ""
}

type cmcQuoteResponse struct {
	Data map[string]struct {
		Quote struct {
			USD struct {
				Price decimal.Decimal `json:"price"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

func (c *CoinMarketCapClient) QuotesUSD(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	params := url.Values{}
	params.Set("symbol", strings.Join(symbols, ","))
	params.Set("convert", "USD")
	endpoint := fmt.Sprintf("%s/cryptocurrency/quotes/latest?%s", c.baseURL, params.Encode())

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)
	request.Header.Set("Accept", "application/json")

	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Warn("coinmarketcap request failed", zap.Strings("symbols", symbols), zap.Error(err))
		return nil, err
	}
	defer response.Body.Close()

	c.logger.Debug(
		"coinmarketcap request complete",
		zap.Strings("symbols", symbols),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("coinmarketcap error: status %d", response.StatusCode)
	}

	var payload cmcQuoteResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		if entry, ok := payload.Data[symbol]; ok {
			prices[symbol] = entry.Quote.USD.Price
		}
	}
	return prices, nil
}
