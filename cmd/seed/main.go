package main

import (
	"time"

	"github.com/vaultpass/internal/config"
	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/repository"
	"github.com/vaultpass/internal/service"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加门店
	staffHash, err := service.HashPin("123456")
	if err != nil {
		stdLog.Fatalf("Failed to hash staff pin: %v", err)
	}
	adminHash, err := service.HashPin("654321")
	if err != nil {
		stdLog.Fatalf("Failed to hash admin pin: %v", err)
	}

	locations := []models.Location{
		{
			Name:         "Downtown",
			FullName:     "Downtown Vault",
			Slug:         "downtown",
			Address:      "120 Main St",
			City:         "Springfield",
			State:        "IL",
			Zip:          "62701",
			Phone:        "217-555-0120",
			Active:       true,
			SortOrder:    1,
			StaffPinHash: staffHash,
			AdminPinHash: adminHash,
		},
		{
			Name:         "Riverside",
			FullName:     "Riverside Vault",
			Slug:         "riverside",
			Address:      "88 River Rd",
			City:         "Springfield",
			State:        "IL",
			Zip:          "62702",
			Phone:        "217-555-0188",
			Active:       true,
			SortOrder:    2,
			StaffPinHash: staffHash,
			AdminPinHash: adminHash,
		},
		{
			Name:         "Northgate",
			FullName:     "Northgate Vault (closed)",
			Slug:         "northgate",
			Address:      "5 North Ave",
			City:         "Springfield",
			State:        "IL",
			Zip:          "62703",
			Active:       false,
			SortOrder:    99,
			StaffPinHash: staffHash,
			AdminPinHash: adminHash,
		},
	}

	locationIDs := map[string]uint{}
	for _, loc := range locations {
		var existing models.Location
		if err := models.DB.Where("slug = ?", loc.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&loc).Error; err != nil {
				stdLog.Printf("Failed to create location %s: %v", loc.Slug, err)
				continue
			}
			stdLog.Printf("Created location: %s (staff pin 123456, admin pin 654321)", loc.Slug)
			locationIDs[loc.Slug] = loc.ID
			continue
		}
		stdLog.Printf("Location already exists: %s", existing.Slug)
		locationIDs[existing.Slug] = existing.ID
	}

	// 添加演示证书：直发流程一张、备货流程一张、已过期一张
	certRepo := repository.NewCertificateRepository(models.DB)
	auditRepo := repository.NewAuditLogRepository(models.DB)
	locationRepo := repository.NewLocationRepository(models.DB)
	directService := service.NewCertificateService(certRepo, locationRepo, auditRepo, nil, nil, constants.WorkflowDirect, 0)
	prepService := service.NewCertificateService(certRepo, locationRepo, auditRepo, nil, nil, constants.WorkflowPrep, 0)

	downtownID := locationIDs["downtown"]
	seedCertificates := []struct {
		svc   *service.CertificateService
		input service.IssueCertificateInput
	}{
		{
			svc: directService,
			input: service.IssueCertificateInput{
				OwnerID:         "user-1001",
				AuctionID:       "auction-501",
				PackageName:     "Weekend Tasting Package",
				ClaimLocationID: downtownID,
				OriginalPrice:   mustMoney("50.00"),
				FinalPrice:      mustMoney("85.00"),
				RetailValue:     mustMoney("150.00"),
			},
		},
		{
			svc: prepService,
			input: service.IssueCertificateInput{
				OwnerID:       "user-1002",
				AuctionID:     "auction-502",
				PackageName:   "Cellar Selection Crate",
				OriginalPrice: mustMoney("100.00"),
				FinalPrice:    mustMoney("140.00"),
				RetailValue:   mustMoney("320.00"),
			},
		},
		{
			svc: directService,
			input: service.IssueCertificateInput{
				OwnerID:       "user-1003",
				AuctionID:     "auction-503",
				PackageName:   "Holiday Gift Box",
				OriginalPrice: mustMoney("30.00"),
				FinalPrice:    mustMoney("45.00"),
				RetailValue:   mustMoney("90.00"),
				ExpiresAt:     timePtr(time.Now().Add(-24 * time.Hour)),
			},
		},
	}

	var certCount int64
	models.DB.Model(&models.Certificate{}).Count(&certCount)
	if certCount > 0 {
		stdLog.Printf("Certificates already present (%d), skipping demo certificates", certCount)
		return
	}
	for _, seed := range seedCertificates {
		cert, err := seed.svc.Issue(seed.input)
		if err != nil {
			stdLog.Printf("Failed to issue demo certificate for %s: %v", seed.input.OwnerID, err)
			continue
		}
		stdLog.Printf("Issued demo certificate: %s (%s)", cert.CertificateNumber, cert.Status)
	}
}

func mustMoney(amount string) models.Money {
	m, err := models.NewMoneyFromString(amount)
	if err != nil {
		panic(err)
	}
	return m
}

func timePtr(t time.Time) *time.Time {
	return &t
}
