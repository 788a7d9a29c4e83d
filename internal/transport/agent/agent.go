package agent

import (
	"net/http"

	"github.com/gin-gonic/gin"

	agentsvc "github.com/alanyang/agent-exec/internal/service/agent"
)

func Register(rg *gin.RouterGroup, svc *agentsvc.Service) {
	rg.GET("", listAgents(svc))
}

func listAgents(svc *agentsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.List(c.Request.Context()))
	}
}
