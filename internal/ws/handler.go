package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"scramble-service/internal/board"
	"scramble-service/internal/service/game"
	"scramble-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Handler struct {
	gameSvc *game.Service
}

func NewHandler(gameSvc *game.Service) *Handler {
	return &Handler{gameSvc: gameSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// HandleBoardWS upgrades the connection and streams the board: a state
// message immediately, another on every board mutation, and accepts flip
// commands from the client over the same socket.
func (h *Handler) HandleBoardWS(c *gin.Context) {
	player := strings.TrimSpace(c.Query("player"))
	if player == "" {
		player = guestID()
	}
	if !board.ValidPlayerID(player) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.String("player", player),
	)

	client := newClient(conn, player, h.gameSvc)
	client.run()
}

func guestID() string {
	// uuids contain dashes, which are not legal in player ids
	return "guest_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

type outMessage struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`
	View string `json:"view,omitempty"`
	Msg  string `json:"msg,omitempty"`
}

type client struct {
	conn      *websocket.Conn
	player    string
	svc       *game.Service
	outbound  chan outMessage
	done      chan struct{}
	cancel    context.CancelFunc
	seq       atomic.Int64
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, player string, svc *game.Service) *client {
	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		player:    player,
		svc:       svc,
		outbound:  make(chan outMessage, 8),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.watchPump(ctx)
	go c.writePump()
	c.readPump(ctx)
}

// watchPump pushes the current view, then one update per board change.
// Watch is cancelled when the client goes away, which also unblocks any
// wait the board holds for us.
func (c *client) watchPump(ctx context.Context) {
	view, err := c.svc.Look(c.player)
	if err != nil {
		return
	}
	c.push(outMessage{Type: "state", Seq: c.nextSeq(), View: view})

	for {
		view, err := c.svc.Watch(ctx, c.player)
		if err != nil {
			if ctx.Err() == nil {
				logger.Log.Warn("watch failed", zap.String("player", c.player), zap.Error(err))
			}
			return
		}
		c.push(outMessage{Type: "state", Seq: c.nextSeq(), View: view})
	}
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		close(c.done)
		c.cancel()
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("player", c.player))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string `json:"type"`
			Row  int    `json:"row"`
			Col  int    `json:"col"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.push(outMessage{Type: "error", Msg: "invalid payload"})
			continue
		}

		switch incoming.Type {
		case "flip":
			// The state update arrives through the watch pump; a flip only
			// answers explicitly when it fails.
			if _, err := c.svc.Flip(ctx, c.player, incoming.Row, incoming.Col); err != nil {
				c.push(outMessage{Type: "error", Msg: fmt.Sprintf("flip failed: %v", err)})
			}
		case "ping":
			c.push(outMessage{Type: "pong", Seq: c.nextSeq()})
		case "":
		default:
			c.push(outMessage{Type: "error", Msg: "unsupported message type"})
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outbound:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("player", c.player))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) push(msg outMessage) {
	select {
	case c.outbound <- msg:
	case <-c.done:
	default:
		logger.Log.Warn("ws outbound channel full", zap.String("player", c.player))
	}
}

func (c *client) nextSeq() int64 {
	return c.seq.Add(1)
}
