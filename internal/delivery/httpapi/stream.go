package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
	streamSendBuffer   = 8
)

// PriceStreamHub fans the price map of each completed evaluation cycle out
// to connected websocket clients. Clients that cannot keep up are dropped
// rather than allowed to back-pressure the engine.
type PriceStreamHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	logger  *zap.Logger

	upgrader websocket.Upgrader
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewPriceStreamHub(logger *zap.Logger) *PriceStreamHub {
	return &PriceStreamHub{
		clients: make(map[*streamClient]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// PublishPrices implements usecase.PricePublisher. It never blocks.
func (h *PriceStreamHub) PublishPrices(prices map[string]decimal.Decimal) {
	payload := make(map[string]string, len(prices))
	for symbol, price := range prices {
		payload[symbol] = price.String()
	}
	message, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("failed to encode price stream message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			// Slow consumer: drop it instead of queueing unboundedly.
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ClientCount is used by tests and the shutdown log line.
func (h *PriceStreamHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams prices until the peer goes away.
func (h *PriceStreamHub) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &streamClient{conn: conn, send: make(chan []byte, streamSendBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	h.readLoop(client)
}

func (h *PriceStreamHub) writeLoop(client *streamClient) {
	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	defer client.conn.Close()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				_ = client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "slow consumer"),
					time.Now().Add(streamWriteTimeout))
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ping.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains the connection so close frames and pongs are processed;
// incoming data is ignored, the stream is one-way.
func (h *PriceStreamHub) readLoop(client *streamClient) {
	defer h.remove(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *PriceStreamHub) remove(client *streamClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	client.conn.Close()
}
