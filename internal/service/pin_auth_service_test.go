package service

import (
	"errors"
	"testing"

	"github.com/vaultpass/internal/config"
	"github.com/vaultpass/internal/constants"
)

func TestPinLoginAndTokenRoundtrip(t *testing.T) {
	env := setupServiceTest(t, constants.WorkflowPrep)
	staffHash, err := HashPin("1234")
	if err != nil {
		t.Fatalf("hash staff pin failed: %v", err)
	}
	adminHash, err := HashPin("9876")
	if err != nil {
		t.Fatalf("hash admin pin failed: %v", err)
	}
	location := createServiceLocation(t, env, "Downtown", "downtown", true)
	if err := env.locationRepo.Update(location.ID, map[string]interface{}{
		"staff_pin_hash": staffHash,
		"admin_pin_hash": adminHash,
	}); err != nil {
		t.Fatalf("set pins failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	cfg.JWT.ExpireHours = 1
	auth := NewPinAuthService(cfg, env.locationRepo)

	session, err := auth.Login(location.ID, "1234", "staff")
	if err != nil {
		t.Fatalf("staff login failed: %v", err)
	}
	if session.Role != constants.ActorRoleStaff {
		t.Fatalf("expected staff role, got %s", session.Role)
	}
	claims, err := auth.ParseToken(session.Token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.LocationID != location.ID || claims.Role != constants.ActorRoleStaff || claims.LocationSlug != "downtown" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	adminSession, err := auth.Login(location.ID, "9876", "admin")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if adminSession.Role != constants.ActorRoleAdmin {
		t.Fatalf("expected admin role, got %s", adminSession.Role)
	}

	// 两把 PIN 互不通用
	if _, err := auth.Login(location.ID, "9876", "staff"); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin for admin pin on staff mode, got %v", err)
	}
	if _, err := auth.Login(location.ID, "0000", "staff"); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("expected ErrInvalidPin, got %v", err)
	}
	if _, err := auth.Login(999, "1234", "staff"); !errors.Is(err, ErrLocationNotFound) {
		t.Fatalf("expected ErrLocationNotFound, got %v", err)
	}

	if err := env.locationRepo.Update(location.ID, map[string]interface{}{"active": false}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := auth.Login(location.ID, "1234", "staff"); !errors.Is(err, ErrLocationInactive) {
		t.Fatalf("expected ErrLocationInactive, got %v", err)
	}
}

func TestLocationServiceCreateAndRotatePin(t *testing.T) {
	env := setupServiceTest(t, constants.WorkflowPrep)
	locationService := NewLocationService(env.locationRepo)

	created, err := locationService.Create(LocationInput{
		Name:     "River North",
		FullName: "River North Vault",
		StaffPin: "1111",
		AdminPin: "2222",
	})
	if err != nil {
		t.Fatalf("create location failed: %v", err)
	}
	if created.Slug != "river-north" {
		t.Fatalf("expected generated slug river-north, got %s", created.Slug)
	}

	if _, err := locationService.Create(LocationInput{Name: "River North"}); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret"
	auth := NewPinAuthService(cfg, env.locationRepo)
	if _, err := auth.Login(created.ID, "1111", "staff"); err != nil {
		t.Fatalf("login with initial pin failed: %v", err)
	}

	if _, err := locationService.Update(created.ID, LocationInput{StaffPin: "5555"}); err != nil {
		t.Fatalf("rotate pin failed: %v", err)
	}
	if _, err := auth.Login(created.ID, "1111", "staff"); !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("expected old pin rejected after rotation, got %v", err)
	}
	if _, err := auth.Login(created.ID, "5555", "staff"); err != nil {
		t.Fatalf("login with rotated pin failed: %v", err)
	}
}
