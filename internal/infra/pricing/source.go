package pricing

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var priceFetchesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "price_fetches_total",
		Help: "Price batch fetches by the provider that served them",
	},
	[]string{"provider"},
)

func init() {
	prometheus.MustRegister(priceFetchesTotal)
}

// defaultPrices is the last line of the fallback chain: static USD values
// served when every provider is down, so the engine keeps evaluating in
// offline and demo setups.
var defaultPrices = map[string]decimal.Decimal{
	"BTC":   decimal.NewFromFloat(45000.0),
	"ETH":   decimal.NewFromFloat(3000.0),
	"ADA":   decimal.NewFromFloat(0.5),
	"DOT":   decimal.NewFromFloat(20.0),
	"LINK":  decimal.NewFromFloat(15.0),
	"UNI":   decimal.NewFromFloat(8.0),
	"AAVE":  decimal.NewFromFloat(100.0),
	"SOL":   decimal.NewFromFloat(25.0),
	"MATIC": decimal.NewFromFloat(0.8),
	"AVAX":  decimal.NewFromFloat(35.0),
}

// Source resolves USD prices through a provider chain: CoinMarketCap when a
// key is configured, CoinGecko otherwise or on failure, static defaults when
// both are unreachable. It implements domain.PriceSource.
type Source struct {
	primary   *CoinMarketCapClient
	secondary *CoinGeckoClient
	logger    *zap.Logger
}

func NewSource(primary *CoinMarketCapClient, secondary *CoinGeckoClient, logger *zap.Logger) *Source {
	return &Source{primary: primary, secondary: secondary, logger: logger}
}

// FetchPrices never returns an error. A symbol absent from the result map
// means no provider (and no default) could price it this cycle; the next
// cycle is the retry mechanism.
func (s *Source) FetchPrices(ctx context.Context, symbols []string) map[string]decimal.Decimal {
	if len(symbols) == 0 {
		return map[string]decimal.Decimal{}
	}

	if s.primary.Configured() {
		prices, err := s.primary.QuotesUSD(ctx, symbols)
		if err == nil {
			priceFetchesTotal.WithLabelValues("coinmarketcap").Inc()
			return prices
		}
		s.logger.Warn("primary price provider failed, falling back", zap.Error(err))
	}

	prices, err := s.secondary.SimplePricesUSD(ctx, symbols)
	if err == nil {
		priceFetchesTotal.WithLabelValues("coingecko").Inc()
		return prices
	}
	s.logger.Warn("secondary price provider failed, using default prices", zap.Error(err))

	priceFetchesTotal.WithLabelValues("defaults").Inc()
	defaults := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		if price, ok := defaultPrices[symbol]; ok {
			defaults[symbol] = price
		}
	}
	return defaults
}
