package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	handler http.Handler
}

// New handler обычно metrics.Handler(registry)
func New(handler http.Handler) *Controller {
	return &Controller{handler: handler}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(c.handler))
}
