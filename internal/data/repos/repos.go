package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos/analyses"
	"github.com/yungbote/originality-backend/internal/data/repos/auth"
	"github.com/yungbote/originality-backend/internal/data/repos/documents"
	"github.com/yungbote/originality-backend/internal/data/repos/jobs"
	"github.com/yungbote/originality-backend/internal/data/repos/user"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo
type DocumentRepo = documents.DocumentRepo
type AnalysisRepo = analyses.AnalysisRepo
type AnalysisListFilter = analyses.ListFilter
type JobRunRepo = jobs.JobRunRepo

var NormalizeEmail = user.NormalizeEmail

type Repos struct {
	User      UserRepo
	UserToken UserTokenRepo
	Document  DocumentRepo
	Analysis  AnalysisRepo
	JobRun    JobRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		User:      user.NewUserRepo(db, log),
		UserToken: auth.NewUserTokenRepo(db, log),
		Document:  documents.NewDocumentRepo(db, log),
		Analysis:  analyses.NewAnalysisRepo(db, log),
		JobRun:    jobs.NewJobRunRepo(db, log),
	}
}
