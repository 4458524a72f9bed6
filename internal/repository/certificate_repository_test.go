package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCertificateRepositoryTest(t *testing.T) (*GormCertificateRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	// 内存 sqlite 串行化写入，避免并发用例触发 database is locked
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Location{}, &models.Certificate{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	db.Exec("DELETE FROM certificates")
	db.Exec("DELETE FROM locations")
	db.Exec("DELETE FROM audit_logs")
	return NewCertificateRepository(db), db
}

func createTestLocation(t *testing.T, db *gorm.DB, name, slug string, active bool) *models.Location {
	t.Helper()
	location := &models.Location{
		Name:     name,
		FullName: name + " Vault",
		Slug:     slug,
		Active:   active,
	}
	if err := db.Create(location).Error; err != nil {
		t.Fatalf("create location failed: %v", err)
	}
	return location
}

func createTestCertificate(t *testing.T, repo *GormCertificateRepository, number, status string, mutate func(*models.Certificate)) *models.Certificate {
	t.Helper()
	cert := &models.Certificate{
		CertificateNumber: number,
		OwnerID:           "owner-1",
		PackageName:       "Weekend Tasting",
		OriginalPrice:     models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		FinalPrice:        models.NewMoneyFromDecimal(decimal.NewFromInt(60)),
		RetailValue:       models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Status:            status,
	}
	if mutate != nil {
		mutate(cert)
	}
	if err := repo.Create(cert); err != nil {
		t.Fatalf("create certificate failed: %v", err)
	}
	return cert
}

func TestCertificateRepositoryGetByNumberNotFound(t *testing.T) {
	repo, _ := setupCertificateRepositoryTest(t)

	cert, err := repo.GetByNumber("VLT-20240101-ZZZZZ")
	if err != nil {
		t.Fatalf("get by number failed: %v", err)
	}
	if cert != nil {
		t.Fatalf("expected nil certificate for unknown number, got %+v", cert)
	}
}

func TestCertificateRepositoryUpdateStatusIf(t *testing.T) {
	repo, _ := setupCertificateRepositoryTest(t)
	cert := createTestCertificate(t, repo, "VLT-20240101-AAA01", constants.CertStatusNew, nil)

	affected, err := repo.UpdateStatusIf(cert.ID, constants.CertStatusNew, constants.CertStatusPending, nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	// 前置状态已不匹配，更新应落空
	affected, err = repo.UpdateStatusIf(cert.ID, constants.CertStatusNew, constants.CertStatusPreparing, nil)
	if err != nil {
		t.Fatalf("stale update failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected 0 rows affected on stale precondition, got %d", affected)
	}

	got, err := repo.GetByID(cert.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if got.Status != constants.CertStatusPending {
		t.Fatalf("expected status %s, got %s", constants.CertStatusPending, got.Status)
	}
}

func TestCertificateRepositoryUpdateStatusIfGuardsSuccessTerminal(t *testing.T) {
	repo, _ := setupCertificateRepositoryTest(t)
	voided := createTestCertificate(t, repo, "VLT-20240101-GRD01", constants.CertStatusReady, func(c *models.Certificate) {
		c.Voided = true
		c.VoidedReason = "refunded"
	})
	redeemedAt := time.Now().Add(-time.Hour)
	redeemed := createTestCertificate(t, repo, "VLT-20240101-GRD02", constants.CertStatusActive, func(c *models.Certificate) {
		c.RedeemedAt = &redeemedAt
	})

	// 已作废的证书不能经条件更新进入成功终态
	affected, err := repo.UpdateStatusIf(voided.ID, constants.CertStatusReady, constants.CertStatusPickedUp, nil)
	if err != nil {
		t.Fatalf("update voided failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected voided certificate to be blocked from picked_up, got %d rows", affected)
	}

	// 已核销过的同理
	affected, err = repo.UpdateStatusIf(redeemed.ID, constants.CertStatusActive, constants.CertStatusRedeemed, nil)
	if err != nil {
		t.Fatalf("update redeemed failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected previously redeemed certificate to be blocked, got %d rows", affected)
	}

	// 非成功终态目标不受作废标记影响（作废证书仍可被取消）
	affected, err = repo.UpdateStatusIf(voided.ID, constants.CertStatusReady, constants.CertStatusCancelled, nil)
	if err != nil {
		t.Fatalf("cancel voided failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected voided certificate to remain cancellable, got %d rows", affected)
	}
}

func TestCertificateRepositoryRedeemIfExactlyOnce(t *testing.T) {
	repo, _ := setupCertificateRepositoryTest(t)
	createTestCertificate(t, repo, "VLT-20240101-AB123", constants.CertStatusActive, nil)

	now := time.Now()
	const workers = 8
	var wg sync.WaitGroup
	results := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.RedeemIf("VLT-20240101-AB123", constants.CertStatusActive, constants.CertStatusRedeemed, map[string]interface{}{
				"redeemed_at":        now,
				"redeemed_location":  "downtown",
				"redeemed_by_staff":  "staff-7",
				"pos_transaction_id": "pos-100",
			})
			if err != nil {
				t.Errorf("redeem failed: %v", err)
				return
			}
			results <- affected
		}()
	}
	wg.Wait()
	close(results)

	var wins int64
	for affected := range results {
		wins += affected
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", wins)
	}

	got, err := repo.GetByNumber("VLT-20240101-AB123")
	if err != nil {
		t.Fatalf("get by number failed: %v", err)
	}
	if got.Status != constants.CertStatusRedeemed {
		t.Fatalf("expected status %s, got %s", constants.CertStatusRedeemed, got.Status)
	}
	if got.RedeemedAt == nil {
		t.Fatalf("expected redeemed_at to be set")
	}
}

func TestCertificateRepositoryRedeemIfRejectsVoided(t *testing.T) {
	repo, _ := setupCertificateRepositoryTest(t)
	createTestCertificate(t, repo, "VLT-20240101-VOID1", constants.CertStatusActive, func(c *models.Certificate) {
		c.Voided = true
		c.VoidedReason = "chargeback"
	})

	affected, err := repo.RedeemIf("VLT-20240101-VOID1", constants.CertStatusActive, constants.CertStatusRedeemed, nil)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected voided certificate to be unredeemable, got %d rows", affected)
	}
}

func TestCertificateRepositoryListExpiredCandidates(t *testing.T) {
	repo, _ := setupCertificateRepositoryTest(t)
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	redeemed := now.Add(-2 * time.Hour)

	createTestCertificate(t, repo, "VLT-20240101-EXP01", constants.CertStatusPending, func(c *models.Certificate) {
		c.ExpiresAt = &past
	})
	createTestCertificate(t, repo, "VLT-20240101-EXP02", constants.CertStatusActive, func(c *models.Certificate) {
		c.ExpiresAt = &future
	})
	createTestCertificate(t, repo, "VLT-20240101-EXP03", constants.CertStatusRedeemed, func(c *models.Certificate) {
		c.ExpiresAt = &past
		c.RedeemedAt = &redeemed
	})
	createTestCertificate(t, repo, "VLT-20240101-EXP04", constants.CertStatusActive, func(c *models.Certificate) {
		c.ExpiresAt = &past
		c.Voided = true
	})
	createTestCertificate(t, repo, "VLT-20240101-EXP05", constants.CertStatusCancelled, func(c *models.Certificate) {
		c.ExpiresAt = &past
	})

	candidates, err := repo.ListExpiredCandidates(now, 0)
	if err != nil {
		t.Fatalf("list expired candidates failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].CertificateNumber != "VLT-20240101-EXP01" {
		t.Fatalf("unexpected candidate %s", candidates[0].CertificateNumber)
	}
}

func TestCertificateRepositoryPendingCancelledClaims(t *testing.T) {
	repo, db := setupCertificateRepositoryTest(t)
	downtown := createTestLocation(t, db, "Downtown", "downtown", true)
	uptown := createTestLocation(t, db, "Uptown", "uptown", true)
	closed := createTestLocation(t, db, "Closed", "closed", false)
	// 无待回收证书的启用门店不应出现在结果里
	createTestLocation(t, db, "Empty", "empty", true)

	earlier := time.Now().Add(-3 * time.Hour)
	later := time.Now().Add(-time.Hour)

	for _, spec := range []struct {
		number     string
		locationID uint
		cancelled  *time.Time
		returned   bool
	}{
		{"VLT-20240101-CAN01", downtown.ID, &earlier, false},
		{"VLT-20240101-CAN02", downtown.ID, &later, false},
		{"VLT-20240101-CAN03", uptown.ID, &later, false},
		{"VLT-20240101-CAN04", closed.ID, &later, false},
		{"VLT-20240101-CAN05", downtown.ID, &later, true},
	} {
		createTestCertificate(t, repo, spec.number, constants.CertStatusCancelled, func(c *models.Certificate) {
			c.ClaimLocationID = &spec.locationID
			c.CancelledAt = spec.cancelled
			c.InventoryReturned = spec.returned
		})
	}

	rows, err := repo.PendingCancelledClaimsByLocation()
	if err != nil {
		t.Fatalf("pending cancelled claims failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 locations, got %d", len(rows))
	}
	if rows[0].LocationID != downtown.ID || rows[0].CancelledCount != 2 {
		t.Fatalf("expected downtown first with 2 pending, got %+v", rows[0])
	}
	if rows[0].OldestCancelled == nil || rows[0].OldestCancelled.Sub(earlier).Abs() > time.Second {
		t.Fatalf("expected oldest cancelled %v, got %v", earlier, rows[0].OldestCancelled)
	}
	if rows[1].LocationID != uptown.ID || rows[1].CancelledCount != 1 {
		t.Fatalf("expected uptown second with 1 pending, got %+v", rows[1])
	}
}

func TestCertificateRepositoryMarkInventoryReturnedIf(t *testing.T) {
	repo, _ := setupCertificateRepositoryTest(t)
	cancelledAt := time.Now().Add(-time.Hour)
	cert := createTestCertificate(t, repo, "VLT-20240101-RET01", constants.CertStatusCancelled, func(c *models.Certificate) {
		c.CancelledAt = &cancelledAt
	})
	activeCert := createTestCertificate(t, repo, "VLT-20240101-RET02", constants.CertStatusActive, nil)

	now := time.Now()
	affected, err := repo.MarkInventoryReturnedIf(cert.ID, map[string]interface{}{
		"inventory_returned_at": now,
		"inventory_returned_by": "staff-3",
	})
	if err != nil {
		t.Fatalf("mark returned failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	// 重复回收与非失败终态都应落空
	affected, err = repo.MarkInventoryReturnedIf(cert.ID, nil)
	if err != nil {
		t.Fatalf("repeat mark returned failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected repeat return to affect 0 rows, got %d", affected)
	}
	affected, err = repo.MarkInventoryReturnedIf(activeCert.ID, nil)
	if err != nil {
		t.Fatalf("active mark returned failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected active certificate return to affect 0 rows, got %d", affected)
	}
}
