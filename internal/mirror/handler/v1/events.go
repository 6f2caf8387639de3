package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kiosk404/mirror/internal/mirror/pkg/errno"
	"github.com/kiosk404/mirror/internal/mirror/service/eventbus"
	"github.com/kiosk404/mirror/internal/pkg/core"
	"github.com/kiosk404/mirror/pkg/errorx"
	"github.com/kiosk404/mirror/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// EventHandler streams bus events to dashboard pages, as server-sent
// events or over a websocket.
type EventHandler struct {
	bus      *eventbus.Bus
	upgrader websocket.Upgrader
}

// NewEventHandler creates a new EventHandler. originAllowed vets the Origin
// header of websocket upgrades; nil accepts same-host requests only.
func NewEventHandler(bus *eventbus.Bus, originAllowed func(origin string) bool) *EventHandler {
	h := &EventHandler{bus: bus}
	if originAllowed != nil {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origin)
		}
	}
	return h
}

// Stream handles GET /events. Each bus event becomes one SSE message whose
// event field is the event name. The stream starts with the cached events.
func (h *EventHandler) Stream(c *gin.Context) {
	sub := h.bus.Listen()
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			logEnd("sse", sub.ID, err)
			return
		}
		c.Render(-1, ev.SSE())
		c.Writer.Flush()
	}
}

// WebSocket handles GET /v1/events/ws. Events are sent as JSON text frames
// {"event": name, "data": payload}. Messages from the client are ignored.
func (h *EventHandler) WebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already replied.
		logger.Warn("[HTTP] %v", errorx.WrapC(err, ErrUpgrade, "events websocket"))
		return
	}
	defer conn.Close()

	sub := h.bus.Listen()
	defer sub.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reader: keeps pong deadlines fresh and notices the client leaving.
	go func() {
		defer cancel()
		conn.SetReadLimit(4096)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := make(chan eventbus.Event)
	go func() {
		defer close(events)
		for {
			ev, err := sub.Next(ctx)
			if err != nil {
				logEnd("websocket", sub.ID, err)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// Cached handles GET /v1/events and returns the last event of every name.
func (h *EventHandler) Cached(c *gin.Context) {
	core.WriteResponse(c, nil, h.bus.Cached())
}

func logEnd(kind, id string, err error) {
	if errors.Is(err, errno.ErrBusClosed) {
		logger.Debug("[HTTP] %s subscriber %s: bus closed", kind, id)
		return
	}
	logger.Debug("[HTTP] %s subscriber %s left: %v", kind, id, err)
}
