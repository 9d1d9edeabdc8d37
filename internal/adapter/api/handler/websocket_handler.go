package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"tradelink/internal/adapter/api/middleware"
	"tradelink/internal/domain/entity"
	"tradelink/internal/infrastructure/ratelimit"
	ws "tradelink/internal/infrastructure/websocket"
	"tradelink/internal/usecase"
	"tradelink/pkg/errors"
	"tradelink/pkg/logger"
	"tradelink/pkg/response"
)

type WebSocketHandler struct {
	wsManager           *ws.Manager
	authMiddleware      *middleware.AuthMiddleware
	conversationUseCase *usecase.ConversationUseCase
	rfqUseCase          *usecase.RFQUseCase
	limiter             *ratelimit.Limiter
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Restricted via ALLOWED_ORIGIN at the CORS layer
	},
}

func NewWebSocketHandler(
	wsManager *ws.Manager,
	authMiddleware *middleware.AuthMiddleware,
	conversationUseCase *usecase.ConversationUseCase,
	rfqUseCase *usecase.RFQUseCase,
	limiter *ratelimit.Limiter,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:           wsManager,
		authMiddleware:      authMiddleware,
		conversationUseCase: conversationUseCase,
		rfqUseCase:          rfqUseCase,
		limiter:             limiter,
	}
}

// inboundEvent is the envelope for every client-to-server frame.
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type joinChatPayload struct {
	ConversationID string `json:"conversation_id"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	MessageType    string `json:"message_type"`
}

type sendQuotePayload struct {
	ConversationID string  `json:"conversation_id"`
	Price          float64 `json:"price"`
	Note           string  `json:"note"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	Typing         bool   `json:"typing"`
}

// HandleWebSocket upgrades the connection and runs the per-connection event
// loop. Auth happens here via the token query parameter because browsers
// cannot set headers on websocket upgrades.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return response.Error(c, errors.Unauthorized("Token query parameter is required", nil))
	}

	userID, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, errors.Unauthorized("Invalid or expired token", err))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to upgrade connection", err))
	}

	client := ws.NewClient(userID, conn)
	h.wsManager.Register <- client

	go client.WritePump()
	go h.readLoop(client)

	return nil
}

func (h *WebSocketHandler) readLoop(client *ws.Client) {
	defer func() {
		h.wsManager.Unregister <- client
		client.Conn.Close()
	}()

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseNormalClosure) {
				logger.Warn("websocket: read error for user %s: %v", client.UserID, err)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			h.wsManager.SendError(client, "Malformed event")
			continue
		}

		h.dispatch(client, event)
	}
}

func (h *WebSocketHandler) dispatch(client *ws.Client, event inboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case "join-chat":
		h.handleJoinChat(ctx, client, event.Data)
	case "leave-chat":
		h.handleLeaveChat(client, event.Data)
	case "send-message":
		h.handleSendMessage(ctx, client, event.Data)
	case "send-quote":
		h.handleSendQuote(ctx, client, event.Data)
	case "typing":
		h.handleTyping(client, event.Data)
	default:
		h.wsManager.SendError(client, "Unknown event type: "+event.Type)
	}
}

// handleJoinChat subscribes the connection to a conversation room. Membership
// is re-checked against the store; a stale client cannot join by id alone.
func (h *WebSocketHandler) handleJoinChat(ctx context.Context, client *ws.Client, data json.RawMessage) {
	var payload joinChatPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.wsManager.SendError(client, "conversation_id is required")
		return
	}

	if err := h.conversationUseCase.AuthorizeParticipant(ctx, payload.ConversationID, client.UserID); err != nil {
		h.wsManager.SendError(client, "Not a participant of this conversation")
		return
	}

	h.wsManager.JoinRoom(payload.ConversationID, client)
}

func (h *WebSocketHandler) handleLeaveChat(client *ws.Client, data json.RawMessage) {
	var payload joinChatPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.wsManager.SendError(client, "conversation_id is required")
		return
	}

	h.wsManager.LeaveRoom(payload.ConversationID, client)
}

// handleSendMessage persists through the same choke point as the REST
// gateway; the broadcast back to the room happens inside the usecase.
func (h *WebSocketHandler) handleSendMessage(ctx context.Context, client *ws.Client, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.wsManager.SendError(client, "conversation_id is required")
		return
	}

	if allowed, retryAfter := h.limiter.Allow(client.UserID, ratelimit.ActionSendMessage); !allowed {
		h.wsManager.SendError(client, "Too many messages, retry in "+retryAfter.Round(time.Second).String())
		return
	}

	messageType := entity.MessageType(payload.MessageType)
	if messageType == "" {
		messageType = entity.MessageTypeText
	}

	if _, err := h.conversationUseCase.AppendMessage(ctx, client.UserID, payload.ConversationID, payload.Content, messageType); err != nil {
		h.wsManager.SendError(client, errorMessage(err))
	}
}

// handleSendQuote resolves the RFQ bound to the conversation and submits the
// seller's quote. The quote-updated broadcast happens inside the usecase.
func (h *WebSocketHandler) handleSendQuote(ctx context.Context, client *ws.Client, data json.RawMessage) {
	var payload sendQuotePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		h.wsManager.SendError(client, "conversation_id is required")
		return
	}

	conversation, err := h.conversationUseCase.GetConversation(ctx, client.UserID, payload.ConversationID)
	if err != nil {
		h.wsManager.SendError(client, errorMessage(err))
		return
	}
	if conversation.RFQID == "" {
		h.wsManager.SendError(client, "Conversation has no RFQ attached")
		return
	}

	if _, err := h.rfqUseCase.SubmitQuote(ctx, client.UserID, conversation.RFQID, payload.Price, payload.Note); err != nil {
		h.wsManager.SendError(client, errorMessage(err))
	}
}

// handleTyping relays a typing indicator to the room. Never persisted, never
// delivered back to the typist.
func (h *WebSocketHandler) handleTyping(client *ws.Client, data json.RawMessage) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		return
	}

	if allowed, _ := h.limiter.Allow(client.UserID, ratelimit.ActionTyping); !allowed {
		return
	}

	h.wsManager.EmitTyping(payload.ConversationID, client.UserID, payload.Typing)
}

func errorMessage(err error) string {
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.Message
	}
	return "Internal error"
}
