package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type UserTokenRepo interface {
	Create(dbc dbctx.Context, userTokens []*types.UserToken) ([]*types.UserToken, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserToken, error)
	GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*types.UserToken, error)
	Rotate(dbc dbctx.Context, id uuid.UUID, oldRefreshToken, accessToken, refreshToken string, expiresAt time.Time) error
	SoftDeleteByIDs(dbc dbctx.Context, tokenIDs []uuid.UUID) error
	FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (utr *userTokenRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return utr.db.WithContext(dbc.Ctx)
}

func (utr *userTokenRepo) Create(dbc dbctx.Context, userTokens []*types.UserToken) ([]*types.UserToken, error) {
	if len(userTokens) == 0 {
		return []*types.UserToken{}, nil
	}
	if err := utr.tx(dbc).Create(&userTokens).Error; err != nil {
		return nil, err
	}
	return userTokens, nil
}

func (utr *userTokenRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.UserToken, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return utr.first(dbc, "id = ?", id)
}

func (utr *userTokenRepo) GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*types.UserToken, error) {
	if refreshToken == "" {
		return nil, nil
	}
	return utr.first(dbc, "refresh_token = ?", refreshToken)
}

func (utr *userTokenRepo) first(dbc dbctx.Context, query string, arg any) (*types.UserToken, error) {
	var tok types.UserToken
	err := utr.tx(dbc).Where(query, arg).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Rotate swaps the session's tokens only while it still holds oldRefreshToken,
// so a refresh token can be spent once. A lost race reports
// gorm.ErrRecordNotFound.
func (utr *userTokenRepo) Rotate(dbc dbctx.Context, id uuid.UUID, oldRefreshToken, accessToken, refreshToken string, expiresAt time.Time) error {
	res := utr.tx(dbc).Model(&types.UserToken{}).
		Where("id = ? AND refresh_token = ?", id, oldRefreshToken).
		Updates(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"expires_at":    expiresAt,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (utr *userTokenRepo) SoftDeleteByIDs(dbc dbctx.Context, tokenIDs []uuid.UUID) error {
	if len(tokenIDs) == 0 {
		return nil
	}
	return utr.tx(dbc).Where("id IN ?", tokenIDs).Delete(&types.UserToken{}).Error
}

func (utr *userTokenRepo) FullDeleteByUserIDs(dbc dbctx.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	return utr.tx(dbc).Unscoped().Where("user_id IN ?", userIDs).Delete(&types.UserToken{}).Error
}
