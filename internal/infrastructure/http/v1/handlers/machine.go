package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machshop/internal/core/apperror"
	"machshop/internal/core/id"
	"machshop/internal/domain"
	"machshop/internal/domain/catalogs/machine"
	"machshop/internal/infrastructure/http/v1/dto"
)

// MachineHTTPHandler is an alias to shorten the generic signature.
type MachineHTTPHandler = CatalogHandler[
	*machine.Machine,
	dto.CreateMachineRequest,
	dto.UpdateMachineRequest,
]

// MachineHandler adds stock and category endpoints on top of the
// generic catalog handler.
type MachineHandler struct {
	*MachineHTTPHandler
	service *machine.Service
}

// NewMachineHandler creates the machine catalog handler.
func NewMachineHandler(
	base *BaseHandler,
	service *machine.Service,
) *MachineHandler {

	config := CatalogHandlerConfig[
		*machine.Machine,
		dto.CreateMachineRequest,
		dto.UpdateMachineRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "machine",

		MapCreateDTO: func(req dto.CreateMachineRequest) *machine.Machine {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateMachineRequest, existing *machine.Machine) *machine.Machine {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(entity *machine.Machine) any {
			return dto.FromMachine(entity)
		},
	}

	return &MachineHandler{
		MachineHTTPHandler: NewCatalogHandler(base, config),
		service:            service,
	}
}

// GetStock handles GET /machines/:id/stock
func (h *MachineHandler) GetStock(c *gin.Context) {
	machineID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	qty, err := h.service.GetStock(c.Request.Context(), machineID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.StockResponse{
		MachineID: machineID.String(),
		Quantity:  qty,
	})
}

// AdjustStock handles POST /machines/:id/stock
func (h *MachineHandler) AdjustStock(c *gin.Context) {
	machineID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AdjustStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	newQty, err := h.service.AdjustStock(c.Request.Context(), machineID, req.Delta)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.StockResponse{
		MachineID: machineID.String(),
		Quantity:  newQty,
	}
	h.CompleteIdempotency(c, http.StatusOK, "application/json", resp)
	c.JSON(http.StatusOK, resp)
}

// ListByCategory handles GET /machines/category/:category
func (h *MachineHandler) ListByCategory(c *gin.Context) {
	category := machine.Category(c.Param("category"))

	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.FindByCategory(c.Request.Context(), category, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, m := range result.Items {
		items[i] = dto.FromMachine(m)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// ListLowStock handles GET /machines/low-stock?threshold=N
func (h *MachineHandler) ListLowStock(c *gin.Context) {
	threshold := h.ParseIntQuery(c, "threshold", 5)

	filter := domain.DefaultListFilter()
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.service.FindLowStock(c.Request.Context(), threshold, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, m := range result.Items {
		items[i] = dto.FromMachine(m)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// ListCategories handles GET /machines/categories
func (h *MachineHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": machine.Categories()})
}
