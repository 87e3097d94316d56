// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"compras/internal/domain/approval"
	"compras/internal/domain/attachment"
	"compras/internal/domain/entity"
	"compras/internal/domain/order"
	"compras/internal/domain/quotation"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/http/v1/handlers"
	"compras/internal/infrastructure/http/v1/middleware"
	"compras/pkg/logger"
)

// RouterConfig holds everything the router wires into handlers.
type RouterConfig struct {
	// Mode is the gin mode ("release", "debug", "test").
	Mode           string
	AllowedOrigins []string

	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator
	Idempotency  middleware.IdempotencyStore

	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.Pinger

	Workflow     *workflow.Service
	Requisitions *requisition.Service
	Orders       *order.Service
	Submitter    *quotation.Submitter
	Drafts       *quotation.Drafts
	Cycles       *quotation.Cycles
	Audit        handlers.AuditReader
	Entities     *entity.Service
	Attachments  *attachment.Service
	Approvals    *approval.Service
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	// gzip must wrap ErrorHandler, which writes after the handlers return.
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()

	protected := router.Group("/api/v1")
	protected.Use(middleware.Auth(cfg.JWTValidator))
	protected.Use(middleware.CompanyScope())

	// Uploads are too large to hash, so attachments skip idempotency.
	var idem []gin.HandlerFunc
	if cfg.Idempotency != nil {
		idem = append(idem, middleware.Idempotency(cfg.Idempotency))
	}

	mount(protected, "/quotations", handlers.NewQuotationHandler(base, handlers.QuotationHandlerConfig{
		Submitter: cfg.Submitter,
		Drafts:    cfg.Drafts,
		Cycles:    cfg.Cycles,
		Workflow:  cfg.Workflow,
		Audit:     cfg.Audit,
	}), idem...)
	mount(protected, "/requisitions", handlers.NewRequisitionHandler(base, cfg.Requisitions, cfg.Workflow), idem...)
	mount(protected, "/orders", handlers.NewOrderHandler(base, cfg.Orders), idem...)
	mount(protected, "/entities", handlers.NewEntityHandler(base, cfg.Entities), idem...)
	mount(protected, "/approvals", handlers.NewApprovalHandler(base, cfg.Approvals))
	if cfg.Attachments != nil {
		mount(protected, "/attachments", handlers.NewAttachmentHandler(base, cfg.Attachments))
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	c.AllowHeaders = append(c.AllowHeaders,
		"Authorization",
		middleware.HeaderCompanyID,
		middleware.HeaderIdempotencyKey,
		middleware.HeaderRequestID,
		middleware.HeaderTraceID,
	)
	c.ExposeHeaders = []string{"Content-Disposition", middleware.HeaderRequestID, middleware.HeaderTraceID, "Idempotent-Replayed"}
	c.MaxAge = 12 * time.Hour
	return c
}
