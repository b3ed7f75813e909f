package ws

import (
	"net/http"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSendQueue  = 256
	DefaultReadLimit  = 4 << 20
	DefaultPingPeriod = 30 * time.Second
	writeWait         = 5 * time.Second
)

type Options struct {
	SendQueue  int
	ReadLimit  int64
	PingPeriod time.Duration
}

// Handler upgrades requests and feeds the hub with every binary message.
type Handler struct {
	hub      core.Hub
	opts     Options
	upgrader websocket.Upgrader
}

func NewHandler(hub core.Hub, opts Options) *Handler {
	if opts.SendQueue <= 0 {
		opts.SendQueue = DefaultSendQueue
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = DefaultPingPeriod
	}
	return &Handler{
		hub:  hub,
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}
	conn := newConn(ws, h.opts.SendQueue)
	sid, err := h.hub.Open(conn)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.ws").Msg("hub refused connection")
		conn.Close()
		return
	}
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Str("remote", conn.RemoteAddr()).Msg("new WS connection")

	go h.writePump(sid, conn)
	go h.readPump(sid, conn)
}

func (h *Handler) readPump(sid core.SessionID, c *Conn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		h.hub.Disconnect(sid)
	}()

	pongWait := h.opts.PingPeriod * 2
	c.conn.SetReadLimit(h.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt != websocket.BinaryMessage {
			log.Debug().Str("module", "adapters.ws").Str("sid", string(sid)).Int("type", mt).Msg("non-binary message ignored")
			continue
		}
		h.hub.Feed(sid, data)
	}
}

func (h *Handler) writePump(sid core.SessionID, c *Conn) {
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "adapters.ws").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
