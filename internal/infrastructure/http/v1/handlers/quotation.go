package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/domain/quotation"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/export"
	"compras/internal/infrastructure/http/v1/dto"
	"compras/internal/infrastructure/storage/postgres"
)

// AuditReader reads the audit trail of an entity.
type AuditReader interface {
	History(ctx context.Context, companyID, entityType string, entityID id.ID, limit int) ([]postgres.AuditEntry, error)
}

// QuotationHandler serves the quotation comparison screen. Edits take the
// session in the body and return it edited along with its comparison.
type QuotationHandler struct {
	*BaseHandler
	submitter *quotation.Submitter
	drafts    *quotation.Drafts
	cycles    *quotation.Cycles
	workflow  *workflow.Service
	audit     AuditReader
}

// QuotationHandlerConfig configures the quotation handler.
type QuotationHandlerConfig struct {
	Submitter *quotation.Submitter
	Drafts    *quotation.Drafts
	Cycles    *quotation.Cycles
	Workflow  *workflow.Service
	Audit     AuditReader
}

// NewQuotationHandler creates a new quotation handler.
func NewQuotationHandler(base *BaseHandler, cfg QuotationHandlerConfig) *QuotationHandler {
	return &QuotationHandler{
		BaseHandler: base,
		submitter:   cfg.Submitter,
		drafts:      cfg.Drafts,
		cycles:      cfg.Cycles,
		workflow:    cfg.Workflow,
		audit:       cfg.Audit,
	}
}

// session binds a request session and normalizes it.
func (h *QuotationHandler) session(c *gin.Context) (*quotation.Session, bool) {
	var req dto.SessionRequest
	if !h.BindJSON(c, &req) {
		return nil, false
	}
	if err := req.Session.Normalize(); err != nil {
		h.Error(c, err)
		return nil, false
	}
	return req.Session, true
}

// Preview handles POST /quotations/preview.
func (h *QuotationHandler) Preview(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.OK(c, quotation.BuildPreview(c.Request.Context(), s))
}

// Validate handles POST /quotations/validate. A failing gate is a normal
// 200 answer with valid=false.
func (h *QuotationHandler) Validate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	err := quotation.Validate(s)
	if err == nil {
		h.OK(c, dto.ValidationResponse{Valid: true})
		return
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ValidationResponse{
		Valid:   false,
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// edit binds a session edit, normalizes the session, applies the edit and
// answers with the edited session and its recomputed comparison.
func (h *QuotationHandler) edit(c *gin.Context, req dto.SessionEdit, apply func(s *quotation.Session) error) {
	if !h.BindJSON(c, req) {
		return
	}
	s := req.EditedSession()
	if err := s.Normalize(); err != nil {
		h.Error(c, err)
		return
	}
	if err := apply(s); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.SessionResponse{Session: s, Preview: quotation.BuildPreview(c.Request.Context(), s)})
}

// Winner handles POST /quotations/winner.
func (h *QuotationHandler) Winner(c *gin.Context) {
	var req dto.WinnerRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		return s.SetWinner(req.ItemKey, req.SupplierKey, req.IsWinner())
	})
}

// ClearWinner handles POST /quotations/winner/clear.
func (h *QuotationHandler) ClearWinner(c *gin.Context) {
	var req dto.ItemRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		if _, ok := s.Item(req.ItemKey); !ok {
			return apperror.NewNotFound("item", req.ItemKey)
		}
		s.ClearWinner(req.ItemKey)
		return nil
	})
}

// AddSupplier handles POST /quotations/suppliers.
func (h *QuotationHandler) AddSupplier(c *gin.Context) {
	var req dto.SupplierRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		_, err := s.AddSupplier(req.Supplier)
		return err
	})
}

// UpdateSupplier handles PUT /quotations/suppliers/:key.
func (h *QuotationHandler) UpdateSupplier(c *gin.Context) {
	var req dto.SupplierRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		return s.UpdateSupplier(c.Param("key"), req.Supplier)
	})
}

// RemoveSupplier handles POST /quotations/suppliers/:key/remove.
func (h *QuotationHandler) RemoveSupplier(c *gin.Context) {
	var req dto.SessionRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		return s.RemoveSupplier(c.Param("key"))
	})
}

// SetCell handles POST /quotations/cells.
func (h *QuotationHandler) SetCell(c *gin.Context) {
	var req dto.CellRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		return s.SetCell(req.SupplierKey, req.ItemKey, req.Cell)
	})
}

// SelectItems handles POST /quotations/items/select.
func (h *QuotationHandler) SelectItems(c *gin.Context) {
	var req dto.SelectionRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		if req.All != nil {
			s.SelectAll(*req.All)
			return nil
		}
		if req.ItemKey == "" {
			return apperror.NewValidation("informe o item ou todos").WithDetail("field", "item")
		}
		return s.ToggleItem(req.ItemKey)
	})
}

// SetType handles POST /quotations/type.
func (h *QuotationHandler) SetType(c *gin.Context) {
	var req dto.TypeRequest
	h.edit(c, &req, func(s *quotation.Session) error {
		return s.SetType(req.Type)
	})
}

// Submit handles POST /quotations.
func (h *QuotationHandler) Submit(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	result, err := h.submitter.Submit(c.Request.Context(), s)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Export handles POST /quotations/export/:format.
func (h *QuotationHandler) Export(c *gin.Context) {
	format, ok := export.ParseFormat(c.Param("format"))
	if !ok {
		h.Error(c, apperror.NewValidation("formato de exportação inválido").
			WithDetail("format", c.Param("format")))
		return
	}

	var req dto.ExportRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := req.Session.Normalize(); err != nil {
		h.Error(c, err)
		return
	}

	doc := export.Document{
		Number:  req.Number,
		Session: req.Session,
		Preview: quotation.BuildPreview(c.Request.Context(), req.Session),
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, doc); err != nil {
		h.Error(c, apperror.NewInternal(err).WithDetail("format", format))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(req.Number, format)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// SaveDraft handles PUT /quotations/drafts/:id.
func (h *QuotationHandler) SaveDraft(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	draft, err := h.drafts.Save(c.Request.Context(), c.Param("id"), s)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, draft)
}

// LoadDraft handles GET /quotations/drafts/:id.
func (h *QuotationHandler) LoadDraft(c *gin.Context) {
	draft, err := h.drafts.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, draft)
}

// DeleteDraft handles DELETE /quotations/drafts/:id.
func (h *QuotationHandler) DeleteDraft(c *gin.Context) {
	if err := h.drafts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Get handles GET /quotations/:id.
func (h *QuotationHandler) Get(c *gin.Context) {
	cycleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	cycle, err := h.cycles.Get(c.Request.Context(), cycleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, cycle)
}

// Transition handles POST /quotations/:id/transition.
func (h *QuotationHandler) Transition(c *gin.Context) {
	cycleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entry, err := h.cycles.Transition(c.Request.Context(), cycleID, req.To, req.Payload)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// History handles GET /quotations/:id/history.
func (h *QuotationHandler) History(c *gin.Context) {
	ctx := c.Request.Context()
	cycleID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	cycle, err := h.cycles.Get(ctx, cycleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	logs, err := h.workflow.History(ctx, cycle.CompanyID, workflow.KindQuote, cycle.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	resp := dto.QuotationHistoryResponse{Cycle: cycle, Transitions: logs}
	if h.audit != nil {
		entries, err := h.audit.History(ctx, appctx.GetCompanyID(ctx), string(workflow.KindQuote), cycle.ID,
			h.ParseIntQuery(c, "limit", 50))
		if err != nil {
			h.Error(c, err)
			return
		}
		resp.Audit = entries
	}
	h.OK(c, resp)
}

// RegisterRoutes mounts the quotation endpoints.
func (h *QuotationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/preview", h.Preview)
	rg.POST("/validate", h.Validate)
	rg.POST("/winner", h.Winner)
	rg.POST("/winner/clear", h.ClearWinner)
	rg.POST("/suppliers", h.AddSupplier)
	rg.PUT("/suppliers/:key", h.UpdateSupplier)
	rg.POST("/suppliers/:key/remove", h.RemoveSupplier)
	rg.POST("/cells", h.SetCell)
	rg.POST("/items/select", h.SelectItems)
	rg.POST("/type", h.SetType)
	rg.POST("/export/:format", h.Export)
	rg.POST("", h.Submit)

	rg.PUT("/drafts/:id", h.SaveDraft)
	rg.GET("/drafts/:id", h.LoadDraft)
	rg.DELETE("/drafts/:id", h.DeleteDraft)

	rg.GET("/:id", h.Get)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/transition", h.Transition)
}
