package user

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)
	UpdateDisplayName(dbc dbctx.Context, userID uuid.UUID, displayName string) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return ur.db.WithContext(dbc.Ctx)
}

func (ur *userRepo) Create(dbc dbctx.Context, users []*types.User) ([]*types.User, error) {
	if len(users) == 0 {
		return []*types.User{}, nil
	}
	for _, u := range users {
		u.Email = NormalizeEmail(u.Email)
	}
	if err := ur.tx(dbc).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*types.User, error) {
	var results []*types.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := ur.tx(dbc).Where("id IN ?", userIDs).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (ur *userRepo) GetByEmail(dbc dbctx.Context, email string) (*types.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var u types.User
	err := ur.tx(dbc).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	var count int64
	if err := ur.tx(dbc).Model(&types.User{}).Where("email = ?", NormalizeEmail(email)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) UpdateDisplayName(dbc dbctx.Context, userID uuid.UUID, displayName string) error {
	return ur.tx(dbc).Model(&types.User{}).
		Where("id = ?", userID).
		Update("display_name", strings.TrimSpace(displayName)).Error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
