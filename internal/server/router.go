package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/orvane/docflow-backend/internal/handlers"
)

type RouterConfig struct {
	ServiceName     string
	DocumentHandler *handlers.DocumentHandler
	WorkflowHandler *handlers.WorkflowHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/documents", cfg.DocumentHandler.Create)
		api.POST("/documents/:id/type", cfg.DocumentHandler.ChangeType)
		api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
		api.POST("/documents/:id/workflows", cfg.WorkflowHandler.Launch)

		api.POST("/workflow-templates", cfg.WorkflowHandler.CreateTemplate)
		api.GET("/workflow-templates/:name", cfg.WorkflowHandler.GetTemplate)
		api.PUT("/workflow-templates/:name/document-types", cfg.WorkflowHandler.SetTemplateDocumentTypes)

		api.GET("/workflow-instances/:id", cfg.WorkflowHandler.GetInstance)
		api.POST("/workflow-instances/:id/transitions", cfg.WorkflowHandler.Transition)
		api.POST("/workflow-instances/:id/check-escalation", cfg.WorkflowHandler.CheckEscalation)
		api.POST("/workflow-escalations/check-all", cfg.WorkflowHandler.CheckEscalationAll)
	}

	return router
}
