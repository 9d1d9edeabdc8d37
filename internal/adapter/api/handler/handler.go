package handler

import (
	"tradelink/internal/usecase"
)

var (
	conversationHandler *ConversationHandler
	rfqHandler          *RFQHandler
)

func Setup(
	conversationUseCase *usecase.ConversationUseCase,
	rfqUseCase *usecase.RFQUseCase,
) {
	conversationHandler = NewConversationHandler(conversationUseCase)
	rfqHandler = NewRFQHandler(rfqUseCase)
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

func GetRFQHandler() *RFQHandler {
	return rfqHandler
}
