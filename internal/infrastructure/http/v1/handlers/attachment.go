package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compras/internal/core/apperror"
	"compras/internal/domain/attachment"
)

// AttachmentHandler serves requisition attachments.
type AttachmentHandler struct {
	*BaseHandler
	service *attachment.Service
}

// NewAttachmentHandler creates a new attachment handler.
func NewAttachmentHandler(base *BaseHandler, service *attachment.Service) *AttachmentHandler {
	return &AttachmentHandler{BaseHandler: base, service: service}
}

// Upload handles POST /attachments/requisitions/:id (multipart field "file").
func (h *AttachmentHandler) Upload(c *gin.Context) {
	reqID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, attachment.MaxSize+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("arquivo ausente no campo \"file\"").WithCause(err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.Error(c, apperror.NewValidation("arquivo ilegível").WithCause(err))
		return
	}
	defer f.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj, err := h.service.Upload(c.Request.Context(), reqID, fh.Filename, f, fh.Size, contentType)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, obj)
}

// List handles GET /attachments/requisitions/:id.
func (h *AttachmentHandler) List(c *gin.Context) {
	reqID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	objects, err := h.service.List(c.Request.Context(), reqID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, objects)
}

func (h *AttachmentHandler) key(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		h.Error(c, apperror.NewValidation("key é obrigatória"))
		return "", false
	}
	return key, true
}

// Download handles GET /attachments/file?key=...
func (h *AttachmentHandler) Download(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	rc, obj, err := h.service.Download(c.Request.Context(), key)
	if err != nil {
		h.Error(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", obj.Name),
	})
}

// Delete handles DELETE /attachments/file?key=...
func (h *AttachmentHandler) Delete(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), key); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes mounts the attachment endpoints.
func (h *AttachmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/requisitions/:id", h.Upload)
	rg.GET("/requisitions/:id", h.List)
	rg.GET("/file", h.Download)
	rg.DELETE("/file", h.Delete)
}
