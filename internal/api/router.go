package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tabsight/sheet_go_server/config"
	"github.com/tabsight/sheet_go_server/internal/api/handler"
	"github.com/tabsight/sheet_go_server/internal/api/middleware"
)

type Router struct {
	datasetHandler  *handler.DatasetHandler
	reportHandler   *handler.ReportHandler
	templateHandler *handler.TemplateHandler
	cfg             *config.Config
}

func NewRouter(
	datasetHandler *handler.DatasetHandler,
	reportHandler *handler.ReportHandler,
	templateHandler *handler.TemplateHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		datasetHandler:  datasetHandler,
		reportHandler:   reportHandler,
		templateHandler: templateHandler,
		cfg:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// 报告模板
		api.GET("/report-templates", r.templateHandler.List)

		// 数据集
		datasets := api.Group("/datasets")
		{
			datasets.POST("", r.datasetHandler.Create)
			datasets.GET("", r.datasetHandler.List)
			datasets.GET("/:id", r.datasetHandler.Get)
			datasets.DELETE("/:id", r.datasetHandler.Delete)
			datasets.GET("/:id/insights", r.datasetHandler.Insights)
			datasets.POST("/:id/retry", r.datasetHandler.Retry)

			// 报告
			datasets.POST("/:id/reports", r.reportHandler.Create)
			datasets.GET("/:id/reports", r.reportHandler.List)
			datasets.GET("/:id/reports/:report_id", r.reportHandler.Get)
			datasets.DELETE("/:id/reports/:report_id", r.reportHandler.Delete)
		}
	}

	return engine
}
