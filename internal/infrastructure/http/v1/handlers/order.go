package handlers

import (
	"github.com/gin-gonic/gin"

	"compras/internal/domain/order"
	"compras/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves purchase orders.
type OrderHandler struct {
	*BaseHandler
	service *order.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *order.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o := req.ToDomain()
	if err := h.service.Create(c.Request.Context(), o); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, o)
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Transition handles POST /orders/:id/transition.
func (h *OrderHandler) Transition(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.Transition(c.Request.Context(), orderID, req.To, req.Payload)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// RegisterRoutes mounts the order endpoints.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/transition", h.Transition)
}
