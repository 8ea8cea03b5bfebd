package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/yungbote/originality-backend/internal/data/repos"
	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	pkgerrors "github.com/yungbote/originality-backend/internal/pkg/errors"
	"github.com/yungbote/originality-backend/internal/platform/ctxutil"
)

func newAuth(t *testing.T) *authService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	rp := repos.New(db, log)
	return NewAuthService(db, log, rp.User, rp.UserToken, "test-secret", time.Minute, time.Hour).(*authService)
}

func TestAuthLifecycle(t *testing.T) {
	ctx := context.Background()
	as := newAuth(t)

	u, err := as.Register(ctx, "  Ada@Example.com ", "correct horse", "Ada")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "ada@example.com" || u.Password == "correct horse" {
		t.Fatalf("user not normalized/hashed: %+v", u)
	}

	pair, err := as.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" || pair.TokenType != "Bearer" {
		t.Fatalf("bad pair: %+v", pair)
	}

	authed, err := as.SetContextFromToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	if ctxutil.UserID(authed) != u.ID {
		t.Fatalf("user id not set on context")
	}
	me, err := as.Me(authed)
	if err != nil || me.ID != u.ID {
		t.Fatalf("Me: %v %+v", err, me)
	}

	// Move the clock so the rotated token differs from the first.
	as.now = func() time.Time { return time.Now().Add(2 * time.Second) }
	next, err := as.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatalf("refresh token not rotated")
	}
	if _, err := as.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatalf("old refresh token should be rejected")
	}
	if _, err := as.SetContextFromToken(ctx, pair.AccessToken); !errors.Is(err, pkgerrors.ErrUnauthorized) {
		t.Fatalf("old access token should be rejected, got %v", err)
	}

	authed, err = as.SetContextFromToken(ctx, next.AccessToken)
	if err != nil {
		t.Fatalf("SetContextFromToken(next): %v", err)
	}
	if err := as.Logout(authed); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := as.SetContextFromToken(ctx, next.AccessToken); !errors.Is(err, pkgerrors.ErrUnauthorized) {
		t.Fatalf("token should be revoked after logout, got %v", err)
	}
}

func TestAuthRegisterValidation(t *testing.T) {
	ctx := context.Background()
	as := newAuth(t)
	if _, err := as.Register(ctx, "dup@example.com", "password1", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := as.Register(ctx, "DUP@example.com", "password2", "")
	if status, code := statusOf(t, err); status != http.StatusConflict || code != "email_taken" {
		t.Fatalf("duplicate: %d %s", status, code)
	}
	_, err = as.Register(ctx, "not-an-email", "password1", "")
	if status, _ := statusOf(t, err); status != http.StatusBadRequest {
		t.Fatalf("bad email: %d", status)
	}
	_, err = as.Register(ctx, "short@example.com", "short", "")
	if _, code := statusOf(t, err); code != "weak_password" {
		t.Fatalf("short password: %s", code)
	}
}

func TestAuthLoginRejectsBadPassword(t *testing.T) {
	ctx := context.Background()
	as := newAuth(t)
	if _, err := as.Register(ctx, "bob@example.com", "password1", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := as.Login(ctx, "bob@example.com", "password2")
	if status, code := statusOf(t, err); status != http.StatusUnauthorized || code != "invalid_credentials" {
		t.Fatalf("got %d %s", status, code)
	}
	_, err = as.Login(ctx, "nobody@example.com", "password1")
	if status, _ := statusOf(t, err); status != http.StatusUnauthorized {
		t.Fatalf("unknown user: %d", status)
	}
}

func TestAuthRejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	as := newAuth(t)
	if _, err := as.Register(ctx, "eve@example.com", "password1", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, err := as.Login(ctx, "eve@example.com", "password1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	other := *as
	other.jwtSecretKey = []byte("another-secret")
	if _, err := other.SetContextFromToken(ctx, pair.AccessToken); !errors.Is(err, pkgerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
