package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"compras/internal/domain"
	"compras/internal/domain/quotation"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/http/v1/dto"
)

// RequisitionHandler serves purchase requisitions and the quotation working
// set built from them.
type RequisitionHandler struct {
	*BaseHandler
	service  *requisition.Service
	workflow *workflow.Service
	now      func() time.Time
}

// NewRequisitionHandler creates a new requisition handler.
func NewRequisitionHandler(base *BaseHandler, service *requisition.Service, wf *workflow.Service) *RequisitionHandler {
	return &RequisitionHandler{BaseHandler: base, service: service, workflow: wf, now: time.Now}
}

// List handles GET /requisitions.
func (h *RequisitionHandler) List(c *gin.Context) {
	f := requisition.ListFilter{ListFilter: domain.DefaultListFilter()}
	f.Search = c.Query("search")
	f.Limit = h.ParseIntQuery(c, "limit", domain.DefaultPageSize)
	f.Offset = h.ParseIntQuery(c, "offset", 0)
	f.OrderBy = c.DefaultQuery("orderBy", f.OrderBy)

	for _, s := range c.QueryArray("state") {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.States = append(f.States, workflow.State(part))
			}
		}
	}
	if t := c.Query("type"); t != "" {
		rt := requisition.Type(t)
		f.Type = &rt
	}
	adv, ok := h.FilterQuery(c)
	if !ok {
		return
	}
	f.AdvancedFilters = adv

	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ListResponse{
		Items:      result.Items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Create handles POST /requisitions.
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req dto.CreateRequisitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	r := req.ToDomain()
	if err := h.service.Create(c.Request.Context(), r); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, r)
}

// Get handles GET /requisitions/:id.
func (h *RequisitionHandler) Get(c *gin.Context) {
	reqID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), reqID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, r)
}

// WorkingSet handles POST /requisitions/working-set: groups the lines of the
// given requisitions and derives the quotation type.
func (h *RequisitionHandler) WorkingSet(c *gin.Context) {
	var req dto.WorkingSetRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reqs, err := h.service.LoadMany(c.Request.Context(), req.RequisitionIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, quotation.BuildSession(reqs, h.now()))
}

// Transition handles POST /requisitions/:id/transition.
func (h *RequisitionHandler) Transition(c *gin.Context) {
	reqID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.service.Transition(c.Request.Context(), reqID, req.To, req.Payload)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// History handles GET /requisitions/:id/history.
func (h *RequisitionHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	reqID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	r, err := h.service.Get(ctx, reqID)
	if err != nil {
		h.Error(c, err)
		return
	}
	logs, err := h.workflow.History(ctx, r.CompanyID, workflow.KindRequisition, r.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, logs)
}

// RegisterRoutes mounts the requisition endpoints.
func (h *RequisitionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/working-set", h.WorkingSet)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/transition", h.Transition)
}
