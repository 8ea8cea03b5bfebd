package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
)

func TestUserRepoEmailNormalized(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	u := &types.User{Email: "  Ada@Example.COM ", Password: "hash"}
	if _, err := repo.Create(dbc, []*types.User{u}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("email = %q", u.Email)
	}
	if ok, err := repo.EmailExists(dbc, "ADA@example.com"); err != nil || !ok {
		t.Fatalf("EmailExists: %v %v", ok, err)
	}
	got, err := repo.GetByEmail(dbc, "ada@example.com")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("GetByEmail = %+v err=%v", got, err)
	}
	if missing, err := repo.GetByEmail(dbc, "nobody@example.com"); err != nil || missing != nil {
		t.Fatalf("missing user: %v %v", missing, err)
	}
	if _, err := repo.Create(dbc, []*types.User{{Email: "ada@example.com", Password: "x"}}); err == nil {
		t.Fatalf("duplicate email should fail")
	}
	if err := repo.UpdateDisplayName(dbc, u.ID, " Ada "); err != nil {
		t.Fatalf("UpdateDisplayName: %v", err)
	}
	rows, err := repo.GetByIDs(dbc, []uuid.UUID{u.ID})
	if err != nil || len(rows) != 1 || rows[0].DisplayName != "Ada" {
		t.Fatalf("GetByIDs = %+v err=%v", rows, err)
	}
}
