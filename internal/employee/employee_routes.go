package employee

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(rg *gin.RouterGroup, handler *Handler) {
	employees := rg.Group("/employees")
	{
		employees.POST("", handler.Register)
		employees.GET("", handler.GetAll)
		employees.GET("/:id", handler.GetById)
	}
}
