package router

import (
	"github.com/vaultpass/internal/cache"
	"github.com/vaultpass/internal/config"
	"github.com/vaultpass/internal/constants"
	adminhandlers "github.com/vaultpass/internal/http/handlers/admin"
	publichandlers "github.com/vaultpass/internal/http/handlers/public"
	staffhandlers "github.com/vaultpass/internal/http/handlers/staff"
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/provider"

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
	staffHandler := staffhandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisClient := cache.Client()
	pinLoginRule := RateLimitRule{
		Prefix:        cache.BuildKey("rate:pin_login"),
		WindowSeconds: cfg.Security.PinRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PinRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.PinRateLimit.BlockSeconds,
		Message:       "too many pin attempts",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口：客户侧只读
		public := apiV1.Group("/public")
		{
			public.GET("/locations", publicHandler.GetLocations)
		}

		// PIN 登录
		auth := apiV1.Group("/auth")
		{
			auth.POST("/pin", RateLimitMiddleware(redisClient, pinLoginRule, KeyByIPAndJSONField("location_id")), publicHandler.PinLogin)
		}

		// 门店接口（staff 会话 + RBAC，admin 会话同样可用）
		staff := apiV1.Group("/staff")
		staff.Use(PinJWTAuthMiddleware(c.PinAuthService), RequireRole(constants.ActorRoleStaff), SessionRBACMiddleware(c.AuthzService))
		{
			staff.GET("/queue", staffHandler.GetQueue)
			staff.POST("/redeem", staffHandler.Redeem)
			staff.GET("/certificates/:number", staffHandler.GetCertificate)
			staff.POST("/certificates/:number/transition", staffHandler.Transition)
			staff.POST("/certificates/:number/inventory-return", staffHandler.InventoryReturn)
			staff.GET("/events", staffHandler.Events)
		}

		// 管理接口（admin 会话 + RBAC）
		admin := apiV1.Group("/admin")
		admin.Use(PinJWTAuthMiddleware(c.PinAuthService), RequireRole(constants.ActorRoleAdmin), SessionRBACMiddleware(c.AuthzService))
		{
			admin.POST("/certificates", adminHandler.IssueCertificate)
			admin.GET("/certificates", adminHandler.ListCertificates)
			admin.GET("/certificates/:number", adminHandler.GetCertificate)
			admin.POST("/certificates/:number/assign", adminHandler.Assign)
			admin.POST("/certificates/:number/transition", adminHandler.Transition)
			admin.POST("/certificates/:number/void", adminHandler.Void)
			admin.PUT("/certificates/:number/notes", adminHandler.UpdateNotes)
			admin.GET("/certificates/:number/audit-logs", adminHandler.GetCertificateAuditLogs)
			admin.POST("/sweep", adminHandler.Sweep)
			admin.GET("/cancelled-claims", adminHandler.CancelledClaims)
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
			admin.GET("/locations", adminHandler.ListLocations)
			admin.POST("/locations", adminHandler.CreateLocation)
			admin.GET("/locations/:id", adminHandler.GetLocation)
			admin.PUT("/locations/:id", adminHandler.UpdateLocation)
			admin.GET("/events", adminHandler.Events)
		}
	}

	return r
}
