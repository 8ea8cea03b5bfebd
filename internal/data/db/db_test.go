package db

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/originality-backend/internal/domain"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open(Config{DSN: MemoryDSN(uuid.NewString()), Silent: true}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })

	u := &types.User{Email: "a@example.com", Password: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Fatalf("id not assigned")
	}
	var got types.User
	if err := db.First(&got, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("first: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "mysql"}, nil); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Open(Config{Driver: "postgres"}, nil); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
