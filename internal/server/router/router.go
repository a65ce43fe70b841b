package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/maleta/internal/server/handlers"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Messaging   *handlers.MessagingHandler
	Consignment *handlers.ConsignmentHandler
	Recognition *handlers.RecognitionHandler
	Ranking     *handlers.RankingHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/webhook", h.Messaging.Verify)
	r.POST("/webhook", h.Messaging.Receive)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.POST("/notify", h.Messaging.Send)
	api.POST("/notify/summaries", h.Messaging.BroadcastSummaries)

	ch := h.Consignment
	reps := api.Group("/representatives")
	reps.GET("", ch.ListRepresentatives)
	reps.POST("", ch.CreateRepresentative)
	reps.GET("/:id", ch.GetRepresentative)
	reps.PUT("/:id", ch.UpdateRepresentative)
	reps.PATCH("/:id/active", ch.SetActive)
	reps.GET("/:id/summary", ch.Summary)
	reps.GET("/:id/maleta", ch.Maleta)
	reps.POST("/:id/notify", h.Messaging.NotifySummary)

	products := api.Group("/products")
	products.GET("", ch.ListProducts)
	products.POST("", ch.CreateProduct)
	products.PUT("/:id", ch.UpdateProduct)
	products.POST("/import", ch.ImportProducts)

	api.GET("/movements", ch.ListMovements)
	api.POST("/deliveries", ch.Deliver)
	api.POST("/restocks", ch.Restock)
	api.POST("/sales", ch.RecordSale)
	api.POST("/sales/import", ch.ImportSales)
	api.POST("/returns", ch.RecordReturn)
	api.POST("/adjustments", ch.RecordAdjustment)
	api.GET("/summaries", ch.Summaries)

	cyc := api.Group("/cycles")
	cyc.GET("", ch.ListCycles)
	cyc.POST("", ch.OpenCycle)
	cyc.POST("/close", ch.CloseCycle)
	cyc.POST("/:id/settle", ch.SettleCycle)

	api.GET("/export", ch.Export)
	api.POST("/import", ch.Import)

	if h.Ranking != nil {
		api.GET("/ranking", h.Ranking.List)
	}

	if h.Recognition != nil {
		api.POST("/recognition/:task", h.Recognition.Recognize)
	}

	if logger != nil {
		logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
