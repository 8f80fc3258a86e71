package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/domain"
	"machshop/internal/domain/refunds"
	"machshop/internal/infrastructure/http/v1/dto"
)

// RefundHandler handles refund document endpoints. Refunds are created
// by the return flow, so there is no create endpoint here.
type RefundHandler struct {
	*BaseHandler
	service *refunds.Service
}

// NewRefundHandler creates a new refund handler.
func NewRefundHandler(base *BaseHandler, service *refunds.Service) *RefundHandler {
	return &RefundHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /refunds - list with filtering and pagination.
func (h *RefundHandler) List(c *gin.Context) {
	filter, err := h.parseListFilter(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, r := range result.Items {
		items[i] = dto.FromRefund(r)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

func (h *RefundHandler) parseListFilter(c *gin.Context) (refunds.ListFilter, error) {
	base := domain.DefaultListFilter()
	base.Search = c.Query("search")
	base.Limit = h.ParseIntQuery(c, "limit", 50)
	base.Offset = h.ParseIntQuery(c, "offset", 0)
	base.OrderBy = c.DefaultQuery("orderBy", "-date")

	filter := refunds.ListFilter{ListFilter: base}

	if s := c.Query("orderId"); s != "" {
		orderID, err := id.Parse(s)
		if err != nil {
			return filter, apperror.NewValidation("invalid orderId format")
		}
		filter.OrderID = &orderID
	}
	if s := c.Query("customerId"); s != "" {
		customerID, err := id.Parse(s)
		if err != nil {
			return filter, apperror.NewValidation("invalid customerId format")
		}
		filter.CustomerID = &customerID
	}
	if s := c.Query("status"); s != "" {
		status := refunds.RefundStatus(s)
		if !refunds.IsValidStatus(status) {
			return filter, apperror.NewValidation("invalid refund status").
				WithDetail("value", s)
		}
		filter.Status = &status
	}
	if s := c.Query("dateFrom"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, apperror.NewValidation("invalid dateFrom, expected YYYY-MM-DD")
		}
		filter.DateFrom = &t
	}
	if s := c.Query("dateTo"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return filter, apperror.NewValidation("invalid dateTo, expected YYYY-MM-DD")
		}
		filter.DateTo = &t
	}

	return filter, nil
}

// Get handles GET /refunds/:id
func (h *RefundHandler) Get(c *gin.Context) {
	refundID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	refund, err := h.service.GetByID(c.Request.Context(), refundID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromRefund(refund))
}

// GetByOrder handles GET /refunds/order/:orderId
func (h *RefundHandler) GetByOrder(c *gin.Context) {
	orderID, err := id.Parse(c.Param("orderId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid orderId format"))
		return
	}

	refund, err := h.service.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromRefund(refund))
}

// UpdateStatus handles PATCH /refunds/:id/status
func (h *RefundHandler) UpdateStatus(c *gin.Context) {
	refundID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateRefundStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	actor := req.ProcessedBy
	if actor == "" {
		actor = h.GetUserName(c)
	}

	refund, err := h.service.UpdateStatus(c.Request.Context(), refundID, req.Status, actor)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.FromRefund(refund)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", resp)
	c.JSON(http.StatusOK, resp)
}

// GetStats handles GET /refunds/stats?from=...&to=...
func (h *RefundHandler) GetStats(c *gin.Context) {
	from, to, err := parseStatsPeriod(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
