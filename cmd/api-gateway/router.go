package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/radio-schedule-api/api/swagger"
	"github.com/noah-isme/radio-schedule-api/internal/handler"
	"github.com/noah-isme/radio-schedule-api/internal/middleware"
	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	"github.com/noah-isme/radio-schedule-api/pkg/config"
	"github.com/noah-isme/radio-schedule-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/radio-schedule-api/pkg/middleware/cors"
	"github.com/noah-isme/radio-schedule-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/radio-schedule-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth         middleware.TokenValidator
	metrics      *service.MetricsService
	limiter      *ratelimit.Limiter
	authHandler  *handler.AuthHandler
	schedule     *handler.ScheduleHandler
	events       *handler.EventHandler
	contributors *handler.ContributorHandler
	payments     *handler.PaymentHandler
	system       *handler.MetricsHandler
	users        *handler.UserHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, d routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(d.metrics))

	r.GET("/health", d.system.Health)
	r.GET("/ready", d.system.Ready)
	r.GET("/metrics", d.system.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authenticated := middleware.JWT(d.auth)
	limited := d.limiter.Middleware()

	api.POST("/auth/login", limited, d.authHandler.Login)
	api.GET("/auth/me", authenticated, d.authHandler.Me)

	api.GET("/schedule/today", d.schedule.Today)
	api.GET("/schedule/week", d.schedule.Week)
	api.GET("/schedule/days/:day", d.schedule.Day)
	api.GET("/schedule/overview", d.schedule.Overview)
	api.GET("/schedule/studios", d.schedule.Studios)
	api.GET("/schedule/export", d.schedule.Export)
	api.GET("/events/:id", d.events.Get)

	api.GET("/contributors/me", authenticated, middleware.RequireRoles(models.RoleContributor), d.contributors.Me)

	admin := api.Group("", authenticated, middleware.RequireRoles(models.RoleAdmin))

	mutations := admin.Group("", limited)
	mutations.POST("/schedule/fill", d.schedule.Fill)
	mutations.POST("/events", d.events.Create)
	mutations.POST("/events/:id/reschedule", d.events.Reschedule)
	mutations.POST("/events/:id/hosts", d.events.AddHost)
	mutations.POST("/events/:id/hosts/remove", d.events.RemoveHost)
	mutations.POST("/events/:id/guests", d.events.AddGuest)
	mutations.POST("/events/:id/guests/remove", d.events.RemoveGuest)
	mutations.DELETE("/events/:id", d.events.Delete)

	admin.GET("/contributors", d.contributors.List)
	admin.POST("/contributors", d.contributors.Create)
	admin.GET("/contributors/:id", d.contributors.Get)
	admin.PUT("/contributors/:id", d.contributors.Update)
	admin.DELETE("/contributors/:id", d.contributors.Delete)
	admin.GET("/contributors/:id/assignments", d.contributors.Assignments)
	admin.GET("/contributors/:id/payments", d.payments.History)
	admin.POST("/contributors/:id/payments/:year/:month", d.payments.Generate)

	admin.POST("/assignments", d.contributors.Assign)
	admin.DELETE("/assignments/:id", d.contributors.Unassign)

	admin.POST("/payments/:id/mark-paid", d.payments.MarkPaid)
	admin.POST("/payments/runs", d.payments.Run)

	admin.GET("/users", d.users.List)
	admin.POST("/users", d.users.Create)
	admin.GET("/users/:id", d.users.Get)
	admin.PUT("/users/:id", d.users.Update)
	admin.DELETE("/users/:id", d.users.Delete)

	admin.GET("/system/metrics", d.system.System)

	return r
}
