package provider

import (
	"context"

	"github.com/vaultpass/internal/authz"
	"github.com/vaultpass/internal/cache"
	"github.com/vaultpass/internal/config"
	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/notifier"
	"github.com/vaultpass/internal/queue"
	"github.com/vaultpass/internal/repository"
	"github.com/vaultpass/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Hub         *notifier.Hub

	// Repositories
	CertificateRepo repository.CertificateRepository
	LocationRepo    repository.LocationRepository
	AuditLogRepo    repository.AuditLogRepository

	// Services
	AuthzService       *authz.Service
	PinAuthService     *service.PinAuthService
	CertificateService *service.CertificateService
	RedemptionService  *service.RedemptionService
	SweepService       *service.SweepService
	AuditService       *service.AuditService
	LocationService    *service.LocationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	if queueClient == nil {
		queueClient, _ = queue.NewClient(nil)
	}

	// 变更广播：redis 可用时跨进程桥接
	hub := notifier.NewHub(notifier.Options{
		Redis:   cache.Client(),
		Channel: cache.BuildKey(constants.ChangeEventChannel),
	})
	hub.Start(context.Background())

	certRepo := repository.NewCertificateRepository(models.DB)
	locationRepo := repository.NewLocationRepository(models.DB)
	auditRepo := repository.NewAuditLogRepository(models.DB)

	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
	} else if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_roles_failed", "error", err)
	}

	certService := service.NewCertificateService(certRepo, locationRepo, auditRepo, queueClient, hub, cfg.Certificate.Workflow, cfg.Certificate.ClaimWindowHours)

	return &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Hub:         hub,

		CertificateRepo: certRepo,
		LocationRepo:    locationRepo,
		AuditLogRepo:    auditRepo,

		AuthzService:       authzService,
		PinAuthService:     service.NewPinAuthService(cfg, locationRepo),
		CertificateService: certService,
		RedemptionService:  service.NewRedemptionService(certRepo, locationRepo, auditRepo, hub),
		SweepService:       service.NewSweepService(certRepo, certService),
		AuditService:       service.NewAuditService(auditRepo),
		LocationService:    service.NewLocationService(locationRepo),
	}
}

// Close 释放容器资源
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.Hub != nil {
		c.Hub.Stop()
	}
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			logger.Warnw("provider_close_queue_client_failed", "error", err)
		}
	}
}
