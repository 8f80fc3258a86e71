package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/domain"
	"machshop/internal/domain/orders"
	"machshop/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles order document endpoints.
type OrderHandler struct {
	*BaseHandler
	service *orders.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *orders.Service) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /orders - register a sale.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	if input.ProcessedBy == "" {
		input.ProcessedBy = h.GetUserName(c)
	}

	order, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.FromOrder(order)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", resp)
	c.JSON(http.StatusCreated, resp)
}

// List handles GET /orders - list with filtering and pagination.
func (h *OrderHandler) List(c *gin.Context) {
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
	for i, o := range result.Items {
		items[i] = dto.FromOrderListItem(o)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

func (h *OrderHandler) parseListFilter(c *gin.Context) (orders.ListFilter, error) {
	base := domain.DefaultListFilter()
	base.Search = c.Query("search")
	base.Limit = h.ParseIntQuery(c, "limit", 50)
	base.Offset = h.ParseIntQuery(c, "offset", 0)
	base.OrderBy = c.DefaultQuery("orderBy", "-date")
	base.IncludeDeleted = c.Query("includeDeleted") == "true"

	filter := orders.ListFilter{ListFilter: base}

	if s := c.Query("customerId"); s != "" {
		customerID, err := id.Parse(s)
		if err != nil {
			return filter, apperror.NewValidation("invalid customerId format")
		}
		filter.CustomerID = &customerID
	}
	if s := c.Query("status"); s != "" {
		status := orders.Status(s)
		if !orders.IsValidStatus(status) {
			return filter, apperror.NewValidation("invalid order status").
				WithDetail("value", s)
		}
		filter.Status = &status
	}
	if s := c.Query("paymentStatus"); s != "" {
		ps := orders.PaymentStatus(s)
		if !orders.IsValidPaymentStatus(ps) {
			return filter, apperror.NewValidation("invalid payment status").
				WithDetail("value", s)
		}
		filter.PaymentStatus = &ps
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

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	order, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromOrder(order))
}

// GetByNumber handles GET /orders/number/:number
func (h *OrderHandler) GetByNumber(c *gin.Context) {
	order, err := h.service.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromOrder(order))
}

// Update handles PUT /orders/:id - edit order-level fields.
func (h *OrderHandler) Update(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.Update(c.Request.Context(), orderID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.FromOrder(order)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", resp)
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateOrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.FromOrder(order)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", resp)
	c.JSON(http.StatusOK, resp)
}

// Cancel handles POST /orders/:id/cancel - restocks all non-returned units.
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	order, err := h.service.Cancel(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.FromOrder(order)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", resp)
	c.JSON(http.StatusOK, resp)
}

// ReturnItem handles PUT /orders/:id/return
func (h *OrderHandler) ReturnItem(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ReturnItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	machineID, err := id.Parse(req.MachineID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid machineId format"))
		return
	}

	result, err := h.service.ReturnItem(c.Request.Context(), orderID, machineID, req.ReturnQuantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusOK, "application/json", result)
	c.JSON(http.StatusOK, result)
}

// ApplyPayment handles PATCH /orders/:id/payment
func (h *OrderHandler) ApplyPayment(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.ApplyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	actor := req.UpdatedBy
	if actor == "" {
		actor = h.GetUserName(c)
	}

	order, err := h.service.ApplyPayment(c.Request.Context(), orderID, req.Amount, actor)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.FromOrder(order)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", resp)
	c.JSON(http.StatusOK, resp)
}

// RecalculateTotals handles POST /orders/:id/recalculate
func (h *OrderHandler) RecalculateTotals(c *gin.Context) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	order, err := h.service.RecalculateTotals(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromOrder(order))
}

// GetStats handles GET /orders/stats?from=...&to=...
func (h *OrderHandler) GetStats(c *gin.Context) {
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

// parseStatsPeriod reads the from/to query params, defaulting to the
// last 30 days.
func parseStatsPeriod(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := c.Query("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, apperror.NewValidation("invalid from, expected YYYY-MM-DD")
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, apperror.NewValidation("invalid to, expected YYYY-MM-DD")
		}
		to = t
	}
	if to.Before(from) {
		return from, to, apperror.NewValidation("to must not be before from")
	}
	return from, to, nil
}
