package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/db"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.NewNop()
}

// DB opens a fresh migrated in-memory sqlite database for one test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	gdb, err := db.Open(db.Config{DSN: db.MemoryDSN(uuid.NewString()), Silent: true}, nil)
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func SeedUser(tb testing.TB, gdb *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{Email: email, Password: "x", DisplayName: "Test"}
	if err := gdb.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}
