package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
)

func TestUserTokenRepo(t *testing.T) {
	db := testutil.DB(t)
	u := testutil.SeedUser(t, db, "usertokenrepo@example.com")
	repo := NewUserTokenRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	t1 := &types.UserToken{
		UserID:       u.ID,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if _, err := repo.Create(dbc, []*types.UserToken{t1}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if t1.ID == uuid.Nil {
		t.Fatalf("id not assigned")
	}
	if got, err := repo.GetByRefreshToken(dbc, "refresh-1"); err != nil || got == nil || got.ID != t1.ID {
		t.Fatalf("GetByRefreshToken: %v %v", got, err)
	}
	if err := repo.Rotate(dbc, t1.ID, "refresh-1", "access-2", "refresh-2", time.Now().Add(2*time.Hour)); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	// A second refresh that read refresh-1 before the first one landed.
	if err := repo.Rotate(dbc, t1.ID, "refresh-1", "access-3", "refresh-3", time.Now().Add(2*time.Hour)); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("reused refresh token rotated: %v", err)
	}
	if got, _ := repo.GetByRefreshToken(dbc, "refresh-1"); got != nil {
		t.Fatalf("old refresh token still valid")
	}
	if got, _ := repo.GetByID(dbc, t1.ID); got == nil || got.AccessToken != "access-2" {
		t.Fatalf("GetByID after rotate = %+v", got)
	}
	if err := repo.SoftDeleteByIDs(dbc, []uuid.UUID{t1.ID}); err != nil {
		t.Fatalf("SoftDeleteByIDs: %v", err)
	}
	if got, _ := repo.GetByID(dbc, t1.ID); got != nil {
		t.Fatalf("deleted token still visible")
	}
	if err := repo.Rotate(dbc, t1.ID, "refresh-2", "a", "b", time.Now()); err == nil {
		t.Fatalf("rotate of deleted session should fail")
	}
}
