package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/collectarr/collectarr/internal/testutil"
)

func newTestService(t *testing.T) (*Service, func()) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	svc, err := NewService(tdb.Conn, "")
	if err != nil {
		tdb.Close()
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, tdb.Close
}

func TestPasswordLifecycle(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	if svc.IsPasswordSet(ctx) {
		t.Error("expected no password initially")
	}
	if err := svc.ValidatePassword(ctx, "anything"); !errors.Is(err, ErrNoPasswordSet) {
		t.Errorf("expected ErrNoPasswordSet, got %v", err)
	}

	if err := svc.SetPassword(ctx, "hunter2hunter2"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if !svc.IsPasswordSet(ctx) {
		t.Error("expected password to be set")
	}

	if err := svc.ValidatePassword(ctx, "hunter2hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := svc.ValidatePassword(ctx, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestSetPasswordRequiresValue(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	if err := svc.SetPassword(context.Background(), ""); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, cleanup := newTestService(t)
	defer cleanup()

	token, err := svc.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.ValidateToken(token); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	if _, err := svc.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTSecretPersistsAcrossRestarts(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	first, err := NewService(tdb.Conn, "")
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	token, err := first.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// A second service over the same database must accept the token.
	second, err := NewService(tdb.Conn, "")
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if _, err := second.ValidateToken(token); err != nil {
		t.Errorf("token rejected after restart: %v", err)
	}
}
