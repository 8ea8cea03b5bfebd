package analyses

import (
	"context"
	"testing"

	"github.com/yungbote/originality-backend/internal/data/repos/testutil"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
)

func TestAnalysisRepoListFilters(t *testing.T) {
	db := testutil.DB(t)
	u := testutil.SeedUser(t, db, "analyses@example.com")
	repo := NewAnalysisRepo(db, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	rows := []*types.Analysis{
		{OwnerUserID: u.ID, Type: analyses.TypeAssessment, Kind: "cogency", Provider: "mock", Model: "m", Status: analyses.StatusSucceeded, InputText: "long text"},
		{OwnerUserID: u.ID, Type: analyses.TypeAssessment, Kind: "originality", Provider: "mock", Model: "m", Status: analyses.StatusSucceeded},
		{OwnerUserID: u.ID, Type: analyses.TypeRewrite, Provider: "mock", Model: "m", Status: analyses.StatusPending},
	}
	if _, err := repo.Create(dbc, rows); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, total, err := repo.ListForOwner(dbc, u.ID, ListFilter{})
	if err != nil || total != 3 || len(all) != 3 {
		t.Fatalf("list all: total=%d len=%d err=%v", total, len(all), err)
	}
	for _, a := range all {
		if a.InputText != "" {
			t.Fatalf("list should omit input_text")
		}
	}
	cogency, total, err := repo.ListForOwner(dbc, u.ID, ListFilter{Type: analyses.TypeAssessment, Kind: "cogency"})
	if err != nil || total != 1 || cogency[0].ID != rows[0].ID {
		t.Fatalf("filtered list: total=%d err=%v", total, err)
	}

	score := 72.5
	if err := repo.UpdateFields(dbc, rows[2].ID, map[string]interface{}{"status": analyses.StatusSucceeded, "score": score}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetForOwner(dbc, u.ID, rows[2].ID)
	if err != nil || got == nil || got.Score == nil || *got.Score != score {
		t.Fatalf("GetForOwner = %+v err=%v", got, err)
	}
	if ok, err := repo.SoftDelete(dbc, u.ID, rows[0].ID); err != nil || !ok {
		t.Fatalf("SoftDelete: %v %v", ok, err)
	}
	if got, _ := repo.GetByID(dbc, rows[0].ID); got != nil {
		t.Fatalf("deleted analysis still visible")
	}
}
