package iris

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/avatar-meme-bot-go/internal/util"
	"go.uber.org/zap"
)

type MessageHandler func(message *Message)

type StateHandler func(state WebSocketState)

// WebSocket receives Iris chat events and reconnects on read failures.
type WebSocket struct {
	wsURL                string
	maxReconnectAttempts int
	reconnectDelay       time.Duration
	handshakeTimeout     time.Duration
	logger               *zap.Logger

	mu       sync.Mutex
	conn     *websocket.Conn
	state    WebSocketState
	onMsg    MessageHandler
	onState  StateHandler
	started  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type WebSocketConfig struct {
	URL                  string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	HandshakeTimeout     time.Duration
}

func NewWebSocket(cfg WebSocketConfig, logger *zap.Logger) *WebSocket {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &WebSocket{
		wsURL:                cfg.URL,
		maxReconnectAttempts: cfg.MaxReconnectAttempts,
		reconnectDelay:       cfg.ReconnectDelay,
		handshakeTimeout:     cfg.HandshakeTimeout,
		logger:               logger,
		state:                WSStateDisconnected,
		stopCh:               make(chan struct{}),
		doneCh:               make(chan struct{}),
	}
}

// OnMessage sets the handler for decoded chat messages. Handlers run on the
// reader goroutine and should hand work off quickly.
func (ws *WebSocket) OnMessage(handler MessageHandler) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.onMsg = handler
}

func (ws *WebSocket) OnStateChange(handler StateHandler) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.onState = handler
}

// Connect dials once and starts the read loop in the background.
func (ws *WebSocket) Connect(ctx context.Context) error {
	if err := ws.dial(ctx); err != nil {
		ws.setState(WSStateFailed)
		return err
	}

	ws.mu.Lock()
	ws.started = true
	ws.mu.Unlock()

	go ws.run(ctx)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
	ws.setState(WSStateConnecting)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = ws.handshakeTimeout

	conn, _, err := dialer.DialContext(ctx, ws.wsURL, nil)
	if err != nil {
		ws.logger.Error("Failed to connect WebSocket", zap.String("url", ws.wsURL), zap.Error(err))
		return err
	}

	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()

	ws.setState(WSStateConnected)
	ws.logger.Info("WebSocket connected", zap.String("url", ws.wsURL))
	return nil
}

func (ws *WebSocket) run(ctx context.Context) {
	defer close(ws.doneCh)
	defer ws.logger.Info("WebSocket listener stopped")

	attempts := 0
	for {
		err := ws.readLoop()
		if ws.stopped(ctx) {
			return
		}
		ws.logger.Warn("WebSocket read error", zap.Error(err))
		ws.setState(WSStateDisconnected)

		for {
			attempts++
			if attempts > ws.maxReconnectAttempts {
				ws.logger.Error("Max reconnect attempts reached", zap.Int("attempts", attempts-1))
				ws.setState(WSStateFailed)
				return
			}

			ws.setState(WSStateReconnecting)
			ws.logger.Info("Scheduling reconnect",
				zap.Int("attempt", attempts),
				zap.Int("max", ws.maxReconnectAttempts),
				zap.Duration("delay", ws.reconnectDelay),
			)

			select {
			case <-ctx.Done():
				return
			case <-ws.stopCh:
				return
			case <-time.After(ws.reconnectDelay):
			}

			if err := ws.dial(ctx); err == nil {
				attempts = 0
				break
			}
		}
	}
}

func (ws *WebSocket) readLoop() error {
	ws.mu.Lock()
	conn := ws.conn
	ws.mu.Unlock()
	if conn == nil {
		return errors.New("websocket not connected")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		ws.dispatch(data)
	}
}

func (ws *WebSocket) dispatch(data []byte) {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		ws.logger.Error("Failed to parse message",
			zap.Error(err),
			zap.String("data", util.TruncateString(string(data), 200)),
		)
		return
	}

	ws.mu.Lock()
	handler := ws.onMsg
	ws.mu.Unlock()

	if handler != nil {
		handler(&message)
	}
}

func (ws *WebSocket) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) setState(state WebSocketState) {
	ws.mu.Lock()
	old := ws.state
	ws.state = state
	handler := ws.onState
	ws.mu.Unlock()

	if old == state {
		return
	}
	ws.logger.Debug("WebSocket state changed",
		zap.String("from", old.String()),
		zap.String("to", state.String()),
	)
	if handler != nil {
		handler(state)
	}
}

func (ws *WebSocket) State() WebSocketState {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.state
}

func (ws *WebSocket) IsConnected() bool {
	return ws.State() == WSStateConnected
}

// Close stops reconnecting, closes the connection and waits briefly for the
// listener to exit.
func (ws *WebSocket) Close() error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })

	ws.mu.Lock()
	conn := ws.conn
	ws.conn = nil
	started := ws.started
	ws.mu.Unlock()

	var closeErr error
	if conn != nil {
		closeErr = conn.Close()
	}
	ws.setState(WSStateDisconnected)

	if !started {
		return closeErr
	}
	select {
	case <-ws.doneCh:
	case <-time.After(5 * time.Second):
		ws.logger.Warn("Timeout waiting for WebSocket listener to stop")
	}
	return closeErr
}
