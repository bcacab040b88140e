package router

import (
	"github.com/pocketshop-sync/internal/config"
	publichandlers "github.com/pocketshop-sync/internal/http/handlers/public"
	"github.com/pocketshop-sync/internal/logger"
	"github.com/pocketshop-sync/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(OwnerMiddleware(cfg.UserJWT.SecretKey))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		cart := apiV1.Group("/cart")
		{
			cart.GET("", publicHandler.GetCart)
			cart.GET("/summary", publicHandler.GetCartSummary)
			cart.POST("/lines", publicHandler.AddCartLine)
			cart.PUT("/lines/:product_id", publicHandler.UpdateCartLine)
			cart.DELETE("/lines/:product_id", publicHandler.DeleteCartLine)
			cart.DELETE("", publicHandler.ClearCart)
			cart.POST("/merge", publicHandler.MergeCart)
		}

		orders := apiV1.Group("/orders")
		{
			orders.POST("", publicHandler.Checkout)
			orders.GET("", publicHandler.ListOrders)
			orders.POST("/:id/cancel", publicHandler.CancelOrder)
		}

		sync := apiV1.Group("/sync")
		{
			sync.POST("/trigger", publicHandler.TriggerSync)
			sync.GET("/status", publicHandler.GetSyncStatus)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
