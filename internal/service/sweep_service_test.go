package service

import (
	"testing"
	"time"

	"github.com/vaultpass/internal/constants"
)

func TestSweepCancelsExpiredAndIsIdempotent(t *testing.T) {
	env := setupServiceTest(t, constants.WorkflowDirect)
	sweep := NewSweepService(env.certRepo, env.certService)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired1 := issueTestCertificate(t, env, func(input *IssueCertificateInput) { input.ExpiresAt = &past })
	expired2 := issueTestCertificate(t, env, func(input *IssueCertificateInput) { input.ExpiresAt = &past })
	live := issueTestCertificate(t, env, func(input *IssueCertificateInput) { input.ExpiresAt = &future })
	voided := issueTestCertificate(t, env, func(input *IssueCertificateInput) { input.ExpiresAt = &past })
	if _, err := env.certService.Void(voided.CertificateNumber, "refunded", Actor{ID: "admin-1", Role: constants.ActorRoleAdmin}); err != nil {
		t.Fatalf("void failed: %v", err)
	}

	cancelled, err := sweep.Sweep(0)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if cancelled != 2 {
		t.Fatalf("expected 2 cancelled, got %d", cancelled)
	}

	for _, number := range []string{expired1.CertificateNumber, expired2.CertificateNumber} {
		cert, err := env.certRepo.GetByNumber(number)
		if err != nil {
			t.Fatalf("refetch failed: %v", err)
		}
		if cert.Status != constants.CertStatusCancelled || cert.CancelledAt == nil {
			t.Fatalf("expected %s cancelled with stamp, got %+v", number, cert)
		}
		logs, err := env.auditRepo.ListByCertificate(cert.ID)
		if err != nil {
			t.Fatalf("list audit failed: %v", err)
		}
		last := logs[len(logs)-1]
		if last.Action != constants.AuditActionAutoCancelled {
			t.Fatalf("expected auto_cancelled audit entry, got %s", last.Action)
		}
		if last.PerformedBy != nil {
			t.Fatalf("expected system performer to be null")
		}
	}

	liveCert, err := env.certRepo.GetByNumber(live.CertificateNumber)
	if err != nil {
		t.Fatalf("refetch live failed: %v", err)
	}
	if liveCert.Status != constants.CertStatusActive {
		t.Fatalf("expected live certificate untouched, got %s", liveCert.Status)
	}

	// 立即重跑一次不再取消任何证书
	cancelled, err = sweep.Sweep(0)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if cancelled != 0 {
		t.Fatalf("expected idempotent re-run, got %d", cancelled)
	}
}

func TestSweepCancelByID(t *testing.T) {
	env := setupServiceTest(t, constants.WorkflowDirect)
	sweep := NewSweepService(env.certRepo, env.certService)
	past := time.Now().Add(-time.Hour)

	cert := issueTestCertificate(t, env, func(input *IssueCertificateInput) { input.ExpiresAt = &past })
	if err := sweep.CancelByID(cert.ID); err != nil {
		t.Fatalf("cancel by id failed: %v", err)
	}
	got, err := env.certRepo.GetByID(cert.ID)
	if err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if got.Status != constants.CertStatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}

	// 已到终态再跑一次按无事发生处理
	if err := sweep.CancelByID(cert.ID); err != nil {
		t.Fatalf("repeat cancel by id failed: %v", err)
	}

	// 未过期证书不取消
	future := time.Now().Add(time.Hour)
	live := issueTestCertificate(t, env, func(input *IssueCertificateInput) { input.ExpiresAt = &future })
	if err := sweep.CancelByID(live.ID); err != nil {
		t.Fatalf("cancel live failed: %v", err)
	}
	gotLive, err := env.certRepo.GetByID(live.ID)
	if err != nil {
		t.Fatalf("refetch live failed: %v", err)
	}
	if gotLive.Status != constants.CertStatusActive {
		t.Fatalf("expected live certificate untouched, got %s", gotLive.Status)
	}
}
