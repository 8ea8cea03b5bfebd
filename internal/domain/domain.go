// Package domain re-exports the persisted models so callers can import a
// single package.
package domain

import (
	"github.com/yungbote/originality-backend/internal/domain/analyses"
	"github.com/yungbote/originality-backend/internal/domain/auth"
	"github.com/yungbote/originality-backend/internal/domain/documents"
	"github.com/yungbote/originality-backend/internal/domain/jobs"
	"github.com/yungbote/originality-backend/internal/domain/user"
)

type User = user.User
type UserToken = auth.UserToken
type Document = documents.Document
type Analysis = analyses.Analysis
type JobRun = jobs.JobRun

// All lists every model for migrations.
func All() []any {
	return []any{
		&User{},
		&UserToken{},
		&Document{},
		&Analysis{},
		&JobRun{},
	}
}
