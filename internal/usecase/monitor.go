package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cryptoalerts/internal/domain"
)

var (
	cyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evaluation_cycles_total",
		Help: "Completed evaluation cycles",
	})
	cycleDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evaluation_cycle_drops_total",
		Help: "Cycle triggers dropped because a cycle was already pending",
	})
	alertsTriggeredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "alerts_triggered_total",
		Help: "Alerts that crossed their threshold and were deactivated",
	})
)

func init() {
	prometheus.MustRegister(cyclesTotal)
	prometheus.MustRegister(cycleDropsTotal)
	prometheus.MustRegister(alertsTriggeredTotal)
}

// PricePublisher receives each cycle's fetched price map, e.g. to fan it out
// to websocket subscribers. Implementations must not block.
type PricePublisher interface {
	PublishPrices(prices map[string]decimal.Decimal)
}

// Monitor is the evaluation engine: every trigger runs one cycle over all
// active alerts, batch-fetching prices once per distinct symbol and firing
// each crossed alert exactly once.
//
// Triggers go through a buffered channel of depth one consumed by a single
// worker, so cycles never overlap and a slow cycle bounds the backlog at one
// pending trigger; anything beyond that is dropped.
type Monitor struct {
	alerts    domain.AlertRepository
	prices    domain.PriceSource
	notifier  domain.Notifier
	publisher PricePublisher
	logger    *zap.Logger

	triggers chan struct{}
	now      func() time.Time
}

func NewMonitor(alerts domain.AlertRepository, prices domain.PriceSource, notifier domain.Notifier, publisher PricePublisher, logger *zap.Logger) *Monitor {
	return &Monitor{
		alerts:    alerts,
		prices:    prices,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		triggers:  make(chan struct{}, 1),
		now:       time.Now,
	}
}

// Start launches the cycle worker. It returns once ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.triggers:
			m.RunCycle(ctx)
		}
	}
}

// Trigger requests one evaluation cycle. It never blocks: if a cycle is
// already queued behind a running one, this trigger is dropped and the
// scheduler's next tick retries.
func (m *Monitor) Trigger() {
	select {
	case m.triggers <- struct{}{}:
	default:
		cycleDropsTotal.Inc()
		m.logger.Debug("cycle trigger dropped, previous cycle still running")
	}
}

// RunCycle evaluates all active alerts against freshly fetched prices.
// Per-alert failures are logged and skipped so one bad record or one failed
// commit never stalls the rest of the cycle.
func (m *Monitor) RunCycle(ctx context.Context) {
	defer cyclesTotal.Inc()

	alerts, err := m.alerts.ListActive(ctx)
	if err != nil {
		m.logger.Error("failed to load active alerts", zap.Error(err))
		return
	}
	if len(alerts) == 0 {
		return
	}

	prices := m.prices.FetchPrices(ctx, distinctSymbols(alerts))
	if m.publisher != nil && len(prices) > 0 {
		m.publisher.PublishPrices(prices)
	}

	var wg sync.WaitGroup
	for i := range alerts {
		alert := &alerts[i]

		price, ok := prices[alert.Symbol]
		if !ok {
			// Price unavailable this cycle. No state mutation; the next
			// cycle is the retry.
			m.logger.Debug("no price for symbol, skipping alert",
				zap.String("symbol", alert.Symbol), zap.Uint("alert_id", alert.ID))
			continue
		}

		fired := domain.ShouldTrigger(alert.Direction, alert.Threshold, alert.LastObservedPrice, price)
		previous := alert.LastObservedPrice
		alert.ObservePrice(price)

		if fired {
			now := m.now()
			alert.MarkTriggered(now)
			alertsTriggeredTotal.Inc()
			m.logger.Info("alert triggered",
				zap.Uint("alert_id", alert.ID),
				zap.String("symbol", alert.Symbol),
				zap.String("price", price.String()),
				zap.String("threshold", alert.Threshold.String()),
				zap.String("direction", string(alert.Direction)),
			)

			text := formatAlertMessage(alert.Symbol, price, alert.Direction, alert.Threshold, previous, now)
			chatID := alert.ChatID
			alertID := alert.ID
			wg.Add(1)
			go func() {
				defer wg.Done()
				// Delivery failure does not re-arm the alert; the state
				// transition below already committed it as fired.
				if !m.notifier.Send(ctx, chatID, text) {
					m.logger.Warn("alert notification failed",
						zap.Uint("alert_id", alertID), zap.String("chat_id", chatID))
				}
			}()
		}

		if err := m.alerts.Save(ctx, alert); err != nil {
			m.logger.Error("failed to persist alert",
				zap.Uint("alert_id", alert.ID), zap.Error(err))
			continue
		}
	}
	wg.Wait()
}

func distinctSymbols(alerts []domain.Alert) []string {
	seen := make(map[string]struct{}, len(alerts))
	symbols := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		if _, ok := seen[alert.Symbol]; ok {
			continue
		}
		seen[alert.Symbol] = struct{}{}
		symbols = append(symbols, alert.Symbol)
	}
	return symbols
}

func formatAlertMessage(symbol string, price decimal.Decimal, direction domain.Direction, threshold decimal.Decimal, previous *decimal.Decimal, at time.Time) string {
	side := "above"
	if direction == domain.DirectionBelow {
		side = "below"
	}

	change := ""
	if previous != nil && !previous.IsZero() {
		diff := price.Sub(*previous)
		pct := diff.Div(*previous).Mul(decimal.NewFromInt(100))
		sign := ""
		if pct.Sign() >= 0 {
			sign = "+"
		}
		change = fmt.Sprintf("\n📈 Price change: $%s (%s%s%%)", diff.StringFixed(2), sign, pct.StringFixed(2))
	}

	return fmt.Sprintf(
		"🚨 <b>Price Alert!</b>\n\n💰 %s is now $%s\n📊 This is %s your threshold of $%s%s\n\n⏰ Alert triggered at %s UTC",
		symbol,
		price.StringFixed(2),
		side,
		threshold.StringFixed(2),
		change,
		at.UTC().Format("2006-01-02 15:04:05"),
	)
}
