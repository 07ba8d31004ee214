package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"CoinPulse/internal/domain/models"
	xlogger "CoinPulse/pkg/logger"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send control frames
)

// Source is what a push subscriber reads each cycle.
type Source interface {
	// Current returns the shared latest snapshot, nil when none exists yet.
	Current() *models.Snapshot
	// Subscribe registers a subscriber and returns its release function.
	Subscribe() func()
}

// PushHandler streams the latest snapshot to each WebSocket subscriber on its own ticker.
type PushHandler struct {
	logger   *xlogger.Logger
	src      Source
	interval time.Duration
	upgrader websocket.Upgrader
}

func NewPushHandler(logger *xlogger.Logger, src Source, interval time.Duration) *PushHandler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &PushHandler{
		logger:   logger,
		src:      src,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *PushHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/crypto", h.Serve)
}

func (h *PushHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	release := h.src.Subscribe()
	h.logger.Debug("push subscriber connected", xlogger.String("remote_ip", c.RealIP()))

	ctx, cancel := context.WithCancel(context.Background())
	go h.readPump(conn, cancel)
	h.writePump(ctx, conn)

	cancel()
	release()
	h.logger.Debug("push subscriber disconnected", xlogger.String("remote_ip", c.RealIP()))
	return nil
}

// readPump discards client frames and cancels ctx once the peer goes away.
func (h *PushHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", xlogger.Error(err))
			}
			return
		}
	}
}

// writePump is the connection's only writer. It sends the current snapshot each
// push cycle, skipping cycles with no data, and pings to keep idle links alive.
func (h *PushHandler) writePump(ctx context.Context, conn *websocket.Conn) {
	push := time.NewTicker(h.interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		push.Stop()
		ping.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-push.C:
			snap := h.src.Current()
			if snap == nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				h.logger.Debug("websocket write failed, dropping subscriber", xlogger.Error(err))
				return
			}

		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
