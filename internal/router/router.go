package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/skinforge/skinforge/internal/config"
	"github.com/skinforge/skinforge/internal/middleware"
	"github.com/skinforge/skinforge/internal/modules/handler"
	"github.com/skinforge/skinforge/internal/modules/serializer"
)

type RouterDeps struct {
	Config           *config.Config
	Log              *zap.Logger
	ProjectHandler   *handler.ProjectHandler
	ImageHandler     *handler.ImageHandler
	AutosaveHandler  *handler.AutosaveHandler
	ReferenceHandler *handler.ReferenceHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	v1 := r.Group("/api/v1")
	{
		v1.Use(middleware.UserAuth())

		reference := v1.Group("/reference")
		{
			reference.GET("/consoles", d.ReferenceHandler.ListConsoles)
			reference.GET("/devices", d.ReferenceHandler.ListDevices)
		}

		projects := v1.Group("/projects")
		{
			projects.GET("", d.ProjectHandler.GetProjects)
			projects.POST("", d.ProjectHandler.CreateProject)

			projects.GET("/current", d.ProjectHandler.GetActiveProject)
			projects.PUT("/current", d.ProjectHandler.UpdateProject)
			projects.PUT("/current/orientations/:orientation", d.ProjectHandler.SaveOrientation)
			projects.POST("/current/image", d.ImageHandler.UploadBackgroundImage)
			projects.POST("/current/controls/:control_id/image", d.ImageHandler.UploadControlImage)
			projects.POST("/current/autosave", d.AutosaveHandler.Notify)

			projects.POST("/:project_id/load", d.ProjectHandler.LoadProject)
			projects.DELETE("/:project_id", d.ProjectHandler.DeleteProject)
		}
	}
	return r
}
