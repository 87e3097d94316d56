package handlers

import (
	"github.com/gin-gonic/gin"

	"compras/internal/domain/approval"
)

// ApprovalHandler routes processes to approval configs.
type ApprovalHandler struct {
	*BaseHandler
	service *approval.Service
}

// NewApprovalHandler creates a new approval handler.
func NewApprovalHandler(base *BaseHandler, service *approval.Service) *ApprovalHandler {
	return &ApprovalHandler{BaseHandler: base, service: service}
}

// Route handles POST /approvals/route.
func (h *ApprovalHandler) Route(c *gin.Context) {
	var facts approval.Facts
	if !h.BindJSON(c, &facts) {
		return
	}
	decision, err := h.service.Route(c.Request.Context(), facts)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, decision)
}

type conditionRequest struct {
	Condition string `json:"condicao" binding:"required"`
}

// CheckCondition handles POST /approvals/conditions/check.
func (h *ApprovalHandler) CheckCondition(c *gin.Context) {
	var req conditionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.service.CheckCondition(req.Condition); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "condição válida")
}

// RegisterRoutes mounts the approval endpoints.
func (h *ApprovalHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/route", h.Route)
	rg.POST("/conditions/check", h.CheckCondition)
}
