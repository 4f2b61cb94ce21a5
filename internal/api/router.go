package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/renthub/docs"
	"github.com/d60-Lab/renthub/internal/api/handler"
)

// NewRouter 组装路由
func NewRouter(h *handler.Handler, mode string) *gin.Engine {
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("renthub"))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	v1 := r.Group("/api/v1")
	{
		v1.POST("/signup", h.Signup)
		v1.POST("/listings", h.CreateListing)
		v1.POST("/listings/:id/deactivate", h.DeactivateListing)
		v1.POST("/bookings", h.CreateBooking)
		v1.POST("/bookings/:id/confirm", h.ConfirmBooking)

		sync := v1.Group("/sync")
		{
			sync.GET("/items", h.ListSyncItems)
			sync.POST("/items/:id/requeue", h.RequeueSyncItem)
			sync.POST("/tick", h.SyncTick)
		}
	}
	return r
}
