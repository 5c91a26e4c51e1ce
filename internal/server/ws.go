package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handhud/internal/app"
	"github.com/ayusman/handhud/internal/logging"
	"github.com/ayusman/handhud/internal/mode"
	"github.com/ayusman/handhud/internal/pipeline"
)

const (
	writeWait  = 2 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// hudMessage is the per-tick frame pushed to the HUD.
type hudMessage struct {
	Type     string      `json:"type"`
	Tick     uint64      `json:"tick"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Tracked  bool        `json:"tracked"`
	Gesture  string      `json:"gesture"`
	AppMode  mode.Mode   `json:"app_mode"`
	Mode     mode.Mode   `json:"mode"`
	Visual   mode.Visual `json:"visual"`
	Distance float64     `json:"distance"`
}

func toHUDMessage(out pipeline.Output) hudMessage {
	return hudMessage{
		Type:     "state",
		Tick:     out.Tick,
		X:        out.Pointer.X,
		Y:        out.Pointer.Y,
		Tracked:  out.Tracked,
		Gesture:  out.Gesture,
		AppMode:  out.AppMode,
		Mode:     out.Mode,
		Visual:   out.Visual,
		Distance: out.Distance,
	}
}

// clientMessage is anything the HUD sends: pointer moves and application
// mode changes.
type clientMessage struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Mode   string  `json:"mode"`
}

// HUDHandler pushes pipeline output to WebSocket clients and feeds their
// pointer and mode messages back into the app.
type HUDHandler struct {
	app    *app.App
	logger *slog.Logger
}

// NewHUDHandler creates a new HUDHandler for a.
func NewHUDHandler(a *app.App, logger *slog.Logger) *HUDHandler {
	return &HUDHandler{app: a, logger: logging.Component(logger, "hud")}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *HUDHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.app.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go h.writeLoop(conn, updates, done)

	h.readLoop(conn)
	close(done)
}

// readLoop applies client messages until the connection fails.
func (h *HUDHandler) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("ignoring malformed client message", "error", err)
			continue
		}

		switch msg.Type {
		case "pointer":
			h.app.MovePointer(msg.X, msg.Y, msg.Width, msg.Height)
		case "mode":
			m, err := mode.Parse(msg.Mode)
			if err != nil {
				h.logger.Debug("ignoring unknown mode", "mode", msg.Mode)
				continue
			}
			h.app.SetMode(m)
		default:
			h.logger.Debug("ignoring client message", "type", msg.Type)
		}
	}
}

// writeLoop is the only writer on conn.
func (h *HUDHandler) writeLoop(conn *websocket.Conn, updates <-chan pipeline.Output, done <-chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := h.send(conn, h.app.Latest()); err != nil {
		conn.Close()
		return
	}

	for {
		select {
		case <-done:
			return
		case out, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				conn.Close()
				return
			}
			if err := h.send(conn, out); err != nil {
				conn.Close()
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (h *HUDHandler) send(conn *websocket.Conn, out pipeline.Output) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(toHUDMessage(out))
}
