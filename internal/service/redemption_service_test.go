package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/models"

	"github.com/shopspring/decimal"
)

func setupRedemptionTest(t *testing.T, workflow string) (*serviceTestEnv, *RedemptionService, *models.Location) {
	t.Helper()
	env := setupServiceTest(t, workflow)
	location := createServiceLocation(t, env, "Downtown", "downtown", true)
	redemption := NewRedemptionService(env.certRepo, env.locationRepo, env.auditRepo, env.hub)
	return env, redemption, location
}

func TestRedeemDirectWorkflow(t *testing.T) {
	env, redemption, location := setupRedemptionTest(t, constants.WorkflowDirect)
	cert := issueTestCertificate(t, env, func(input *IssueCertificateInput) {
		input.FinalPrice = models.NewMoneyFromDecimal(decimal.NewFromInt(60))
		input.RetailValue = models.NewMoneyFromDecimal(decimal.NewFromInt(100))
	})

	result, err := redemption.Redeem(RedeemInput{
		Token:            cert.CertificateNumber,
		POSTransactionID: "pos-1001",
		LocationID:       location.ID,
		StaffID:          "staff-7",
	})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Certificate.Status != constants.CertStatusRedeemed {
		t.Fatalf("expected redeemed, got %s", result.Certificate.Status)
	}
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected discount 40, got %s", result.Discount.String())
	}
	if result.Certificate.POSTransactionID != "pos-1001" {
		t.Fatalf("expected pos transaction recorded, got %s", result.Certificate.POSTransactionID)
	}
	if result.Certificate.RedeemedLocation != "downtown" {
		t.Fatalf("expected redeemed_location downtown, got %s", result.Certificate.RedeemedLocation)
	}

	logs, err := env.auditRepo.ListByCertificate(cert.ID)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	last := logs[len(logs)-1]
	if last.Action != constants.AuditActionRedeemed {
		t.Fatalf("expected redeemed audit entry, got %s", last.Action)
	}
}

func TestRedeemReadyCertificateBecomesPickedUp(t *testing.T) {
	env, redemption, location := setupRedemptionTest(t, constants.WorkflowPrep)
	cert := issueTestCertificate(t, env, nil)
	admin := Actor{ID: "admin-1", Role: constants.ActorRoleAdmin}
	if _, err := env.certService.Assign(cert.CertificateNumber, location.ID, "", admin); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	staff := Actor{ID: "staff-1", Role: constants.ActorRoleStaff}
	for _, target := range []string{constants.CertStatusPending, constants.CertStatusPreparing, constants.CertStatusReady} {
		if _, err := env.certService.Transition(cert.CertificateNumber, TransitionInput{Target: target, Actor: staff}); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}

	result, err := redemption.Redeem(RedeemInput{
		Token:            cert.CertificateNumber,
		POSTransactionID: "pos-2002",
		LocationID:       location.ID,
		StaffID:          "staff-1",
	})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Certificate.Status != constants.CertStatusPickedUp {
		t.Fatalf("expected picked_up, got %s", result.Certificate.Status)
	}
	if result.Certificate.PickedUpAt == nil || result.Certificate.RedeemedAt == nil {
		t.Fatalf("expected pickup and redemption stamps, got %+v", result.Certificate)
	}
}

func TestRedeemValidationOrder(t *testing.T) {
	env, redemption, location := setupRedemptionTest(t, constants.WorkflowDirect)
	other := createServiceLocation(t, env, "Uptown", "uptown", true)

	t.Run("malformed token", func(t *testing.T) {
		_, err := redemption.Redeem(RedeemInput{Token: "not-a-token", POSTransactionID: "pos-1", LocationID: location.ID})
		if !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("expected ErrMalformedToken, got %v", err)
		}
	})

	t.Run("not found leaves store untouched", func(t *testing.T) {
		_, err := redemption.Redeem(RedeemInput{Token: "VLT-20240101-ZZZZ9", POSTransactionID: "pos-1", LocationID: location.ID})
		if !errors.Is(err, ErrCertificateNotFound) {
			t.Fatalf("expected ErrCertificateNotFound, got %v", err)
		}
	})

	t.Run("already redeemed", func(t *testing.T) {
		cert := issueTestCertificate(t, env, nil)
		if _, err := redemption.Redeem(RedeemInput{Token: cert.CertificateNumber, POSTransactionID: "pos-1", LocationID: location.ID}); err != nil {
			t.Fatalf("first redeem failed: %v", err)
		}
		_, err := redemption.Redeem(RedeemInput{Token: cert.CertificateNumber, POSTransactionID: "pos-2", LocationID: location.ID})
		if !errors.Is(err, ErrAlreadyRedeemed) {
			t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
		}
		if RedeemFailureDetail(err) == "" {
			t.Fatalf("expected prior redemption timestamp in failure detail")
		}
	})

	t.Run("voided surfaces reason", func(t *testing.T) {
		cert := issueTestCertificate(t, env, nil)
		if _, err := env.certService.Void(cert.CertificateNumber, "refunded", Actor{ID: "admin-1", Role: constants.ActorRoleAdmin}); err != nil {
			t.Fatalf("void failed: %v", err)
		}
		_, err := redemption.Redeem(RedeemInput{Token: cert.CertificateNumber, POSTransactionID: "pos-1", LocationID: location.ID})
		if !errors.Is(err, ErrCertificateVoided) {
			t.Fatalf("expected ErrCertificateVoided, got %v", err)
		}
		if RedeemFailureDetail(err) != "refunded" {
			t.Fatalf("expected void reason in detail, got %q", RedeemFailureDetail(err))
		}
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		cert := issueTestCertificate(t, env, func(input *IssueCertificateInput) {
			input.ExpiresAt = &past
		})
		_, err := redemption.Redeem(RedeemInput{Token: cert.CertificateNumber, POSTransactionID: "pos-1", LocationID: location.ID})
		if !errors.Is(err, ErrCertificateExpired) {
			t.Fatalf("expected ErrCertificateExpired, got %v", err)
		}
	})

	t.Run("location mismatch surfaces correct site", func(t *testing.T) {
		cert := issueTestCertificate(t, env, func(input *IssueCertificateInput) {
			input.ClaimLocationID = location.ID
		})
		_, err := redemption.Redeem(RedeemInput{Token: cert.CertificateNumber, POSTransactionID: "pos-1", LocationID: other.ID})
		if !errors.Is(err, ErrLocationMismatch) {
			t.Fatalf("expected ErrLocationMismatch, got %v", err)
		}
		if RedeemFailureDetail(err) != "Downtown Vault" {
			t.Fatalf("expected correct location name, got %q", RedeemFailureDetail(err))
		}
	})

	t.Run("missing transaction id", func(t *testing.T) {
		cert := issueTestCertificate(t, env, nil)
		_, err := redemption.Redeem(RedeemInput{Token: cert.CertificateNumber, POSTransactionID: "  ", LocationID: location.ID})
		if !errors.Is(err, ErrTransactionRequired) {
			t.Fatalf("expected ErrTransactionRequired, got %v", err)
		}
		// 校验失败不能落任何变更
		current, err := env.certRepo.GetByNumber(cert.CertificateNumber)
		if err != nil {
			t.Fatalf("refetch failed: %v", err)
		}
		if current.Status != constants.CertStatusActive || current.RedeemedAt != nil {
			t.Fatalf("expected certificate untouched, got %+v", current)
		}
	})
}

func TestRedeemRejectsNotYetRedeemableStatus(t *testing.T) {
	env, redemption, location := setupRedemptionTest(t, constants.WorkflowPrep)
	cert := issueTestCertificate(t, env, nil)
	admin := Actor{ID: "admin-1", Role: constants.ActorRoleAdmin}
	staff := Actor{ID: "staff-1", Role: constants.ActorRoleStaff}

	redeem := func() error {
		_, err := redemption.Redeem(RedeemInput{
			Token:            cert.CertificateNumber,
			POSTransactionID: "pos-4004",
			LocationID:       location.ID,
		})
		return err
	}

	// 备货流程从 new 走到 ready 之前，每一站核销都必须被拒绝
	steps := []struct {
		status  string
		advance func() error
	}{
		{constants.CertStatusNew, func() error {
			_, err := env.certService.Assign(cert.CertificateNumber, location.ID, "", admin)
			return err
		}},
		{constants.CertStatusAssigned, func() error {
			_, err := env.certService.Transition(cert.CertificateNumber, TransitionInput{Target: constants.CertStatusPending, Actor: staff})
			return err
		}},
		{constants.CertStatusPending, func() error {
			_, err := env.certService.Transition(cert.CertificateNumber, TransitionInput{Target: constants.CertStatusPreparing, Actor: staff})
			return err
		}},
		{constants.CertStatusPreparing, func() error {
			_, err := env.certService.Transition(cert.CertificateNumber, TransitionInput{Target: constants.CertStatusReady, Actor: staff})
			return err
		}},
	}
	for _, step := range steps {
		if err := redeem(); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition at %s, got %v", step.status, err)
		}
		current, err := env.certRepo.GetByNumber(cert.CertificateNumber)
		if err != nil {
			t.Fatalf("refetch at %s failed: %v", step.status, err)
		}
		if current.Status != step.status || current.RedeemedAt != nil {
			t.Fatalf("expected certificate untouched at %s, got %+v", step.status, current)
		}
		if err := step.advance(); err != nil {
			t.Fatalf("advance from %s failed: %v", step.status, err)
		}
	}

	// 到 ready 后核销成功并落 picked_up
	if err := redeem(); err != nil {
		t.Fatalf("redeem at ready failed: %v", err)
	}
	current, err := env.certRepo.GetByNumber(cert.CertificateNumber)
	if err != nil {
		t.Fatalf("final refetch failed: %v", err)
	}
	if current.Status != constants.CertStatusPickedUp {
		t.Fatalf("expected picked_up after redeeming ready certificate, got %s", current.Status)
	}
}

func TestRedeemConcurrentExactlyOneSuccess(t *testing.T) {
	env, redemption, location := setupRedemptionTest(t, constants.WorkflowDirect)
	cert := issueTestCertificate(t, env, nil)

	const attempts = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	losses := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := redemption.Redeem(RedeemInput{
				Token:            cert.CertificateNumber,
				POSTransactionID: "pos-3003",
				LocationID:       location.ID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrAlreadyRedeemed) || errors.Is(err, ErrStatusConflict):
				losses++
			default:
				t.Errorf("unexpected redeem error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one success, got %d", successes)
	}
	if losses != attempts-1 {
		t.Fatalf("expected %d losers, got %d", attempts-1, losses)
	}
}
