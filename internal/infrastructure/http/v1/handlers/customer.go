package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"machshop/internal/core/apperror"
	"machshop/internal/domain/catalogs/customer"
	"machshop/internal/infrastructure/http/v1/dto"
)

// CustomerHTTPHandler is an alias to shorten the generic signature.
type CustomerHTTPHandler = CatalogHandler[
	*customer.Customer,
	dto.CreateCustomerRequest,
	dto.UpdateCustomerRequest,
]

// CustomerHandler adds NIC lookup on top of the generic catalog handler.
type CustomerHandler struct {
	*CustomerHTTPHandler
	service *customer.Service
}

// NewCustomerHandler creates the customer catalog handler.
func NewCustomerHandler(
	base *BaseHandler,
	service *customer.Service,
) *CustomerHandler {

	config := CatalogHandlerConfig[
		*customer.Customer,
		dto.CreateCustomerRequest,
		dto.UpdateCustomerRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "customer",

		MapCreateDTO: func(req dto.CreateCustomerRequest) *customer.Customer {
			return req.ToEntity()
		},

		MapUpdateDTO: func(req dto.UpdateCustomerRequest, existing *customer.Customer) *customer.Customer {
			req.ApplyTo(existing)
			return existing
		},

		MapToDTO: func(entity *customer.Customer) any {
			return dto.FromCustomer(entity)
		},
	}

	return &CustomerHandler{
		CustomerHTTPHandler: NewCatalogHandler(base, config),
		service:             service,
	}
}

// GetByNIC handles GET /customers/nic/:nic
func (h *CustomerHandler) GetByNIC(c *gin.Context) {
	nic := strings.TrimSpace(c.Param("nic"))
	if nic == "" {
		h.Error(c, apperror.NewValidation("nic is required"))
		return
	}

	cust, err := h.service.FindByNIC(c.Request.Context(), nic)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCustomer(cust))
}
