package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

const DefaultListLimit = 50

// listColumns omits the text body.
var listColumns = []string{
	"id", "owner_user_id", "title", "source", "kind", "filename", "mime_type",
	"size_bytes", "pages", "word_count", "warnings", "created_at", "updated_at",
}

type DocumentRepo interface {
	Create(dbc dbctx.Context, docs []*types.Document) ([]*types.Document, error)
	GetForOwner(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.Document, error)
	ListForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, limit, offset int) ([]*types.Document, int64, error)
	UpdateFields(dbc dbctx.Context, ownerUserID, id uuid.UUID, updates map[string]interface{}) (bool, error)
	SoftDelete(dbc dbctx.Context, ownerUserID, id uuid.UUID) (bool, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *documentRepo) Create(dbc dbctx.Context, docs []*types.Document) ([]*types.Document, error) {
	if len(docs) == 0 {
		return []*types.Document{}, nil
	}
	if err := r.tx(dbc).Create(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// GetForOwner returns nil, nil when the document does not exist or belongs to
// someone else.
func (r *documentRepo) GetForOwner(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.Document, error) {
	if ownerUserID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var doc types.Document
	err := r.tx(dbc).Where("id = ? AND owner_user_id = ?", id, ownerUserID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) ListForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, limit, offset int) ([]*types.Document, int64, error) {
	out := []*types.Document{}
	if ownerUserID == uuid.Nil {
		return out, 0, nil
	}
	base := func() *gorm.DB {
		return r.tx(dbc).Model(&types.Document{}).Where("owner_user_id = ?", ownerUserID)
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if err := base().Select(listColumns).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *documentRepo) UpdateFields(dbc dbctx.Context, ownerUserID, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := r.tx(dbc).Model(&types.Document{}).
		Where("id = ? AND owner_user_id = ?", id, ownerUserID).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepo) SoftDelete(dbc dbctx.Context, ownerUserID, id uuid.UUID) (bool, error) {
	res := r.tx(dbc).Where("id = ? AND owner_user_id = ?", id, ownerUserID).Delete(&types.Document{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
