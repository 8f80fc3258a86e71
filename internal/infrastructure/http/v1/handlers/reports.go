package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"machshop/internal/domain/reports"
	"machshop/internal/infrastructure/http/v1/dto"
)

// ReportHandler handles analytical report endpoints.
type ReportHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportHandler creates a new report handler.
func NewReportHandler(base *BaseHandler, service *reports.Service) *ReportHandler {
	return &ReportHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetRevenue handles GET /reports/revenue
func (h *ReportHandler) GetRevenue(c *gin.Context) {
	var query dto.RevenueReportQuery
	if !h.BindQuery(c, &query) {
		return
	}

	report, err := h.service.GetRevenue(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetMachineSales handles GET /reports/machine-sales
func (h *ReportHandler) GetMachineSales(c *gin.Context) {
	var query dto.MachineSalesReportQuery
	if !h.BindQuery(c, &query) {
		return
	}

	report, err := h.service.GetMachineSales(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
