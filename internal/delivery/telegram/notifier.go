package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Alert notifications by outcome",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(notificationsTotal)
}

// Notifier delivers alert messages over Telegram. Without a bot token it
// runs in demo mode: the message is logged and reported as delivered, so the
// alert state machine behaves exactly as it does live.
type Notifier struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

// New builds a Notifier. An empty token selects demo mode; a bad token is a
// startup error, not something to discover on the first trigger.
func New(token string, logger *zap.Logger) (*Notifier, error) {
	if token == "" {
		logger.Warn("telegram bot token not configured, notifier running in demo mode")
		return &Notifier{logger: logger}, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Notifier{api: api, logger: logger}, nil
}

// Send reports true when the message was accepted for delivery. Transport
// failures come back as false, never as a panic or an error value.
func (n *Notifier) Send(ctx context.Context, chatID, text string) bool {
	if n.api == nil {
		n.logger.Info("demo notification", zap.String("chat_id", chatID), zap.String("text", text))
		notificationsTotal.WithLabelValues("demo").Inc()
		return true
	}

	msg, err := buildMessage(chatID, text)
	if err != nil {
		n.logger.Warn("invalid chat id", zap.String("chat_id", chatID), zap.Error(err))
		notificationsTotal.WithLabelValues("failure").Inc()
		return false
	}
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := n.api.Send(msg); err != nil {
		n.logger.Warn("telegram send failed", zap.String("chat_id", chatID), zap.Error(err))
		notificationsTotal.WithLabelValues("failure").Inc()
		return false
	}
	notificationsTotal.WithLabelValues("success").Inc()
	return true
}

func buildMessage(chatID, text string) (tgbotapi.MessageConfig, error) {
	if strings.HasPrefix(chatID, "@") {
		return tgbotapi.NewMessageToChannel(chatID, text), nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, err
	}
	return tgbotapi.NewMessage(id, text), nil
}
