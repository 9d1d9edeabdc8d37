package handler

import (
	"github.com/labstack/echo/v4"

	"tradelink/internal/usecase"
	"tradelink/pkg/errors"
	"tradelink/pkg/response"
	"tradelink/pkg/utils"
)

type RFQHandler struct {
	rfqUseCase *usecase.RFQUseCase
}

func NewRFQHandler(rfqUseCase *usecase.RFQUseCase) *RFQHandler {
	return &RFQHandler{
		rfqUseCase: rfqUseCase,
	}
}

type createRFQRequest struct {
	SellerID  string `json:"seller_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required"`
	Message   string `json:"message"`
}

type updateRFQRequest struct {
	Status string  `json:"status" validate:"required,oneof=Quoted Closed"`
	Price  float64 `json:"price"`
	Note   string  `json:"note"`
}

// CreateRFQ opens a quote request against a seller's product. Repeating the
// call for the same product and seller returns the existing RFQ.
func (h *RFQHandler) CreateRFQ(c echo.Context) error {
	var req createRFQRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	buyerID := c.Get("uid").(string)

	rfq, err := h.rfqUseCase.CreateRFQ(c.Request().Context(), buyerID, usecase.CreateRFQInput{
		SellerID:  req.SellerID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Message:   req.Message,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"rfq":             rfq,
		"conversation_id": rfq.ConversationID,
	})
}

// ListRFQs returns the caller's RFQs in the requested role.
func (h *RFQHandler) ListRFQs(c echo.Context) error {
	userID := c.Get("uid").(string)
	role := c.QueryParam("role")
	params := utils.GetPaginationParams(c, 20)

	rfqs, total, err := h.rfqUseCase.ListRFQs(c.Request().Context(), userID, role, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, rfqs, total, params.Limit, params.Offset)
}

// GetRFQ returns one RFQ for either of its parties.
func (h *RFQHandler) GetRFQ(c echo.Context) error {
	userID := c.Get("uid").(string)

	rfq, err := h.rfqUseCase.GetRFQ(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"rfq": rfq,
	})
}

// UpdateRFQ drives the status machine: the seller moves Pending to Quoted by
// submitting a price, the buyer moves Quoted to Closed by accepting it.
func (h *RFQHandler) UpdateRFQ(c echo.Context) error {
	var req updateRFQRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)
	rfqID := c.Param("id")

	switch req.Status {
	case "Quoted":
		rfq, err := h.rfqUseCase.SubmitQuote(c.Request().Context(), userID, rfqID, req.Price, req.Note)
		if err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, map[string]interface{}{"rfq": rfq})

	case "Closed":
		rfq, err := h.rfqUseCase.AcceptQuote(c.Request().Context(), userID, rfqID)
		if err != nil {
			return response.Error(c, err)
		}
		return response.Success(c, map[string]interface{}{"rfq": rfq})

	default:
		return response.Error(c, errors.BadRequest("Unsupported status", nil))
	}
}
