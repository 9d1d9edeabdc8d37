package handler

import (
	"github.com/labstack/echo/v4"

	"tradelink/internal/domain/entity"
	"tradelink/internal/usecase"
	"tradelink/pkg/response"
	"tradelink/pkg/utils"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type startConversationRequest struct {
	ReceiverID     string `json:"receiver_id" validate:"required"`
	ProductID      string `json:"product_id"`
	InitialMessage string `json:"initial_message"`
}

type sendMessageRequest struct {
	Content     string `json:"content" validate:"required"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text rfq quote"`
}

// StartConversation creates or returns the caller's conversation with the
// receiver, optionally seeding it with an initial message.
func (h *ConversationHandler) StartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	conversation, message, err := h.conversationUseCase.StartConversation(c.Request().Context(), userID, usecase.StartConversationInput{
		ReceiverID:     req.ReceiverID,
		ProductID:      req.ProductID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"conversation": conversation,
		"message":      message,
	})
}

// ListConversations returns the caller's conversations, most recently
// updated first.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c, 20)

	conversations, total, err := h.conversationUseCase.ListConversations(c.Request().Context(), userID, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, conversations, total, params.Limit, params.Offset)
}

// GetConversation returns one conversation together with its most recent
// messages. Fetching the detail view marks the caller's unread messages read.
func (h *ConversationHandler) GetConversation(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")
	params := utils.GetPaginationParams(c, 50)

	conversation, err := h.conversationUseCase.GetConversation(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	messages, total, err := h.conversationUseCase.ListMessages(c.Request().Context(), userID, conversationID, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.conversationUseCase.MarkRead(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"conversation":   conversation,
		"messages":       messages,
		"total_messages": total,
	})
}

// SendMessage appends a message to a conversation over REST. The same
// usecase path serves the websocket send-message event.
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	messageType := entity.MessageType(req.MessageType)
	if messageType == "" {
		messageType = entity.MessageTypeText
	}

	message, err := h.conversationUseCase.AppendMessage(c.Request().Context(), userID, conversationID, req.Content, messageType)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"message": message,
	})
}

// MarkRead flips the caller's unread messages in a conversation to read.
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	if err := h.conversationUseCase.MarkRead(c.Request().Context(), userID, conversationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"status": "read",
	})
}
