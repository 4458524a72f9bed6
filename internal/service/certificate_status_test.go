package service

import (
	"testing"
	"time"

	"github.com/vaultpass/internal/constants"
)

func TestCanTransitionCert(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{constants.CertStatusNew, constants.CertStatusAssigned, true},
		{constants.CertStatusAssigned, constants.CertStatusPending, true},
		{constants.CertStatusPending, constants.CertStatusPreparing, true},
		{constants.CertStatusPreparing, constants.CertStatusReady, true},
		{constants.CertStatusReady, constants.CertStatusPickedUp, true},
		{constants.CertStatusActive, constants.CertStatusRedeemed, true},
		{constants.CertStatusPreparing, constants.CertStatusPending, true},
		{constants.CertStatusReady, constants.CertStatusPreparing, true},
		{constants.CertStatusNew, constants.CertStatusCancelled, true},
		{constants.CertStatusActive, constants.CertStatusExpired, true},
		{constants.CertStatusNew, constants.CertStatusReady, false},
		{constants.CertStatusNew, constants.CertStatusRedeemed, false},
		{constants.CertStatusActive, constants.CertStatusPickedUp, false},
		{constants.CertStatusPickedUp, constants.CertStatusCancelled, false},
		{constants.CertStatusRedeemed, constants.CertStatusActive, false},
		{constants.CertStatusCancelled, constants.CertStatusPending, false},
		{constants.CertStatusExpired, constants.CertStatusActive, false},
		{"PENDING", "preparing", true},
		{" ready ", "picked_up", true},
	}
	for _, tc := range cases {
		if got := canTransitionCert(tc.from, tc.to); got != tc.allowed {
			t.Fatalf("canTransitionCert(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTerminalStatusChecks(t *testing.T) {
	for _, status := range []string{constants.CertStatusPickedUp, constants.CertStatusRedeemed} {
		if !isTerminalCertStatus(status) || !isSuccessTerminalCertStatus(status) || isFailureTerminalCertStatus(status) {
			t.Fatalf("expected %s to be a success terminal", status)
		}
	}
	for _, status := range []string{constants.CertStatusCancelled, constants.CertStatusExpired} {
		if !isTerminalCertStatus(status) || isSuccessTerminalCertStatus(status) || !isFailureTerminalCertStatus(status) {
			t.Fatalf("expected %s to be a failure terminal", status)
		}
	}
	for _, status := range []string{constants.CertStatusNew, constants.CertStatusPending, constants.CertStatusActive} {
		if isTerminalCertStatus(status) {
			t.Fatalf("expected %s to be non-terminal", status)
		}
	}
}

func TestStatusTimestampUpdates(t *testing.T) {
	now := time.Now()

	updates := statusTimestampUpdates(constants.CertStatusPickedUp, now)
	if updates["picked_up_at"] != now || updates["redeemed_at"] != now {
		t.Fatalf("expected picked_up to stamp both pickup and redemption, got %+v", updates)
	}

	updates = statusTimestampUpdates(constants.CertStatusPreparing, now)
	if v, ok := updates["prepared_at"]; !ok || v != nil {
		t.Fatalf("expected preparing to clear prepared_at, got %+v", updates)
	}

	updates = statusTimestampUpdates(constants.CertStatusReady, now)
	if updates["prepared_at"] != now {
		t.Fatalf("expected ready to stamp prepared_at, got %+v", updates)
	}

	updates = statusTimestampUpdates(constants.CertStatusExpired, now)
	if updates["cancelled_at"] != now {
		t.Fatalf("expected expired to stamp cancelled_at, got %+v", updates)
	}
}
