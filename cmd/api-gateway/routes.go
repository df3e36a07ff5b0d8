package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/result-portal-api/internal/handler"
	"github.com/noah-isme/result-portal-api/internal/middleware"
	"github.com/noah-isme/result-portal-api/internal/models"
	"github.com/noah-isme/result-portal-api/internal/service"
	"github.com/noah-isme/result-portal-api/pkg/config"
	"github.com/noah-isme/result-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/result-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/result-portal-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	results     *handler.ResultHandler
	approvals   *handler.ApprovalHandler
	transcripts *handler.TranscriptHandler
	exports     *handler.ExportHandler
	periods     *handler.PeriodHandler
	ops         *handler.MetricsHandler
}

func roles(rs ...models.UserRole) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, string(r))
	}
	return out
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, tokens middleware.TokenValidator, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.ops.Health)
	r.GET("/ready", h.ops.Ready)
	r.GET("/metrics", h.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// the signed token is the credential
	api.GET("/exports/:token", h.exports.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(tokens))

	submitters := roles(models.RoleStaff, models.RoleAdvisor)
	readers := roles(models.RoleStaff, models.RoleAdvisor, models.RoleHOD, models.RoleDean, models.RoleAdmin)
	editors := roles(models.RoleStaff, models.RoleAdvisor, models.RoleAdmin)
	reviewers := roles(models.RoleHOD, models.RoleDean)
	staffReaders := roles(models.RoleAdvisor, models.RoleHOD, models.RoleDean, models.RoleAdmin)
	academic := append(roles(models.RoleAdvisor, models.RoleHOD, models.RoleDean, models.RoleAdmin), middleware.Self)

	results := authed.Group("/results")
	results.POST("", middleware.RBAC(submitters...), h.results.Submit)
	results.GET("", middleware.RBAC(readers...), h.results.List)
	results.GET("/:id", middleware.RBAC(readers...), h.results.Get)
	results.GET("/:id/edit", middleware.RBAC(editors...), h.results.Reconcile)
	results.PUT("/:id", middleware.RBAC(editors...), h.results.Edit)
	results.POST("/:id/approve", middleware.RBAC(reviewers...), h.approvals.Approve)
	results.POST("/:id/disapprove", middleware.RBAC(reviewers...), h.approvals.Disapprove)
	results.POST("/:id/retract", middleware.RequireRoles(models.RoleDean), h.approvals.Retract)

	students := authed.Group("/students/:id")
	students.Use(middleware.RBAC(academic...))
	students.GET("/transcript", h.transcripts.Transcript)
	students.GET("/cgpa", h.transcripts.CGPA)
	students.GET("/summary", h.transcripts.Summary)

	authed.POST("/students/:id/transcript/export", middleware.RBAC(staffReaders...), h.exports.ExportTranscript)

	authed.GET("/classes/:id/standings", middleware.RBAC(staffReaders...), h.transcripts.ClassStandings)
	authed.GET("/classes/:id/broadsheet", middleware.RBAC(staffReaders...), h.transcripts.ClassBroadsheet)

	authed.GET("/academic-period", h.periods.Active)
	authed.PUT("/academic-period", middleware.RequireRoles(models.RoleAdmin), h.periods.SetActive)

	return r
}
