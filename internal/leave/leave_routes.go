package leave

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, handler *Handler) {
	leaves := rg.Group("/leaves")
	{
		leaves.POST("", handler.Create)
		leaves.POST("/:id/approve", handler.Approve)
		leaves.POST("/:id/reject", handler.Reject)
	}

	rg.GET("/leave-types", handler.GetTypes)
	rg.GET("/employees/:id/balances", handler.GetBalances)
	rg.GET("/employees/:id/leaves", handler.GetHistory)
}
