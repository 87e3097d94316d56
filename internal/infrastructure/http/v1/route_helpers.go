package v1

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar is a handler that mounts its own routes.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// mount registers h under path with optional group middleware.
func mount(rg *gin.RouterGroup, path string, h RouteRegistrar, mw ...gin.HandlerFunc) {
	group := rg.Group(path)
	group.Use(mw...)
	h.RegisterRoutes(group)
}
