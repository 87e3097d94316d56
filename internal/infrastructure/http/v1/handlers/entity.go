package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"

	"compras/internal/core/apperror"
	"compras/internal/domain/entity"
)

// EntityHandler exposes the allow-listed tables through one set of routes.
type EntityHandler struct {
	*BaseHandler
	service *entity.Service
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(base *BaseHandler, service *entity.Service) *EntityHandler {
	return &EntityHandler{BaseHandler: base, service: service}
}

func skipCompanyFilter(c *gin.Context) bool {
	return c.Query("skipCompanyFilter") == "true"
}

// Tables handles GET /entities.
func (h *EntityHandler) Tables(c *gin.Context) {
	h.OK(c, h.service.Tables())
}

// List handles GET /entities/:schema/:table.
//
// Query: page, pageSize, orderBy, filters (JSON object of equality
// conditions), filter (JSON array of conditions), skipCompanyFilter.
func (h *EntityHandler) List(c *gin.Context) {
	params := entity.ListParams{
		Schema:            c.Param("schema"),
		Table:             c.Param("table"),
		Page:              h.ParseIntQuery(c, "page", 1),
		PageSize:          h.ParseIntQuery(c, "pageSize", 0),
		OrderBy:           c.Query("orderBy"),
		SkipCompanyFilter: skipCompanyFilter(c),
	}
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Filters); err != nil {
			h.Error(c, apperror.NewValidation("filtros inválidos (objeto JSON esperado)").WithDetail("error", err.Error()))
			return
		}
	}
	adv, ok := h.FilterQuery(c)
	if !ok {
		return
	}
	params.AdvancedFilters = adv

	page, err := h.service.List(c.Request.Context(), params)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, page)
}

// Get handles GET /entities/:schema/:table/:id.
func (h *EntityHandler) Get(c *gin.Context) {
	recordID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	rec, err := h.service.Get(c.Request.Context(), c.Param("schema"), c.Param("table"), recordID, skipCompanyFilter(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// Create handles POST /entities/:schema/:table.
func (h *EntityHandler) Create(c *gin.Context) {
	var data entity.Record
	if !h.BindJSON(c, &data) {
		return
	}
	rec, err := h.service.Create(c.Request.Context(), c.Param("schema"), c.Param("table"), data)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, rec)
}

// Update handles PATCH /entities/:schema/:table/:id.
func (h *EntityHandler) Update(c *gin.Context) {
	recordID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var data entity.Record
	if !h.BindJSON(c, &data) {
		return
	}
	rec, err := h.service.Update(c.Request.Context(), c.Param("schema"), c.Param("table"), recordID, data, skipCompanyFilter(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// Delete handles DELETE /entities/:schema/:table/:id.
func (h *EntityHandler) Delete(c *gin.Context) {
	recordID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("schema"), c.Param("table"), recordID, skipCompanyFilter(c)); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes mounts the entity endpoints.
func (h *EntityHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Tables)
	rg.GET("/:schema/:table", h.List)
	rg.POST("/:schema/:table", h.Create)
	rg.GET("/:schema/:table/:id", h.Get)
	rg.PATCH("/:schema/:table/:id", h.Update)
	rg.DELETE("/:schema/:table/:id", h.Delete)
}
