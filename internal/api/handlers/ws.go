package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/codyseavey/bag-of-holding/backend/internal/models"
	"github.com/codyseavey/bag-of-holding/backend/internal/services"
	"github.com/codyseavey/bag-of-holding/backend/internal/worker"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	wsPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than wsPongWait.
	wsPingPeriod = (wsPongWait * 9) / 10

	wsSendBuffer = 32
)

// Message types on the socket
const (
	msgLoadHelvault    = "load-helvault"
	msgQueryCards      = "query-cards"
	msgQueryInventory  = "query-inventory"
	msgComputeMatches  = "compute-matches"
	msgHelvaultLoaded  = "helvault-loaded"
	msgCardsResult     = "cards-query-result"
	msgInventoryResult = "inventory-query-result"
	msgMatchesResult   = "matches-result"
	msgError           = "error"
)

type wsInbound struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsOutbound struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

type loadHelvaultPayload struct {
	File   string `json:"file"`
	Source string `json:"source"`
}

type queryCardsPayload struct {
	SessionID string `json:"session_id"`
	services.CardFilter
}

type queryInventoryPayload struct {
	SessionID    string `json:"session_id"`
	CollectionID string `json:"collection_id"`
}

type computeMatchesPayload struct {
	SessionID string `json:"session_id"`
	models.MatchRequest
}

// WSHandler exposes the worker over a websocket. Every inbound message is
// answered with exactly one message carrying the same id.
type WSHandler struct {
	client   *worker.Client
	upgrader websocket.Upgrader
	maxBytes int64
}

func NewWSHandler(client *worker.Client, allowedOrigins []string, maxUploadBytes int64) *WSHandler {
	return &WSHandler{
		client: client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		// base64 inflates uploads by a third, plus room for the envelope
		maxBytes: maxUploadBytes/3*4 + 4096,
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	conn.SetReadLimit(h.maxBytes)
	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	send := make(chan wsOutbound, wsSendBuffer)
	writerDone := make(chan struct{})
	go h.writeLoop(ctx, conn, send, writerDone)

	for {
		var msg wsInbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket: read failed: %v", err)
			}
			break
		}
		go func(msg wsInbound) {
			reply := h.handleMessage(ctx, msg)
			select {
			case send <- reply:
			case <-ctx.Done():
			}
		}(msg)
	}

	cancel()
	<-writerDone
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, send <-chan wsOutbound, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case out := <-send:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(out); err != nil {
				log.Printf("WebSocket: write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, msg wsInbound) wsOutbound {
	replyType, payload, err := h.dispatch(ctx, msg)
	if err != nil {
		return wsOutbound{ID: msg.ID, Type: msgError, Error: err.Error()}
	}
	return wsOutbound{ID: msg.ID, Type: replyType, Payload: payload}
}

func (h *WSHandler) dispatch(ctx context.Context, msg wsInbound) (string, any, error) {
	switch msg.Type {
	case msgLoadHelvault:
		var p loadHelvaultPayload
		if err := decodePayload(msg, &p); err != nil {
			return "", nil, err
		}
		data, err := base64.StdEncoding.DecodeString(p.File)
		if err != nil {
			return "", nil, fmt.Errorf("invalid base64 file data: %w", err)
		}
		summary, err := h.client.LoadHelvault(ctx, data, p.Source)
		return msgHelvaultLoaded, summary, err

	case msgQueryCards:
		var p queryCardsPayload
		if err := decodePayload(msg, &p); err != nil {
			return "", nil, err
		}
		result, err := h.client.QueryCards(ctx, p.SessionID, p.CardFilter)
		return msgCardsResult, result, err

	case msgQueryInventory:
		var p queryInventoryPayload
		if err := decodePayload(msg, &p); err != nil {
			return "", nil, err
		}
		if _, err := services.DecodeBinderID(p.CollectionID); err != nil {
			return "", nil, fmt.Errorf("invalid collection_id: %w", err)
		}
		result, err := h.client.QueryInventory(ctx, p.SessionID, p.CollectionID)
		return msgInventoryResult, result, err

	case msgComputeMatches:
		var p computeMatchesPayload
		if err := decodePayload(msg, &p); err != nil {
			return "", nil, err
		}
		result, err := h.client.ComputeMatches(ctx, p.SessionID, p.MatchRequest)
		return msgMatchesResult, result, err

	default:
		return "", nil, fmt.Errorf("%w: %s", worker.ErrUnknownRequest, msg.Type)
	}
}

// decodePayload unmarshals the message payload. A missing payload leaves
// target at its zero value.
func decodePayload(msg wsInbound, target any) error {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Payload, target); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return nil
}
