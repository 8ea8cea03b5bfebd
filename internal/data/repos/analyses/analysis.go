package analyses

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	"github.com/yungbote/originality-backend/internal/platform/logger"
)

type ListFilter struct {
	Type       string
	Kind       string
	DocumentID *uuid.UUID
	Limit      int
	Offset     int
}

type AnalysisRepo interface {
	Create(dbc dbctx.Context, rows []*types.Analysis) ([]*types.Analysis, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Analysis, error)
	GetForOwner(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.Analysis, error)
	ListForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, f ListFilter) ([]*types.Analysis, int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDelete(dbc dbctx.Context, ownerUserID, id uuid.UUID) (bool, error)
}

type analysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRepo {
	return &analysisRepo{db: db, log: baseLog.With("repo", "AnalysisRepo")}
}

func (r *analysisRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *analysisRepo) Create(dbc dbctx.Context, rows []*types.Analysis) ([]*types.Analysis, error) {
	if len(rows) == 0 {
		return []*types.Analysis{}, nil
	}
	if err := r.tx(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *analysisRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Analysis, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ?", id))
}

func (r *analysisRepo) GetForOwner(dbc dbctx.Context, ownerUserID, id uuid.UUID) (*types.Analysis, error) {
	if ownerUserID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ? AND owner_user_id = ?", id, ownerUserID))
}

func (r *analysisRepo) first(q *gorm.DB) (*types.Analysis, error) {
	var row types.Analysis
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *analysisRepo) ListForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, f ListFilter) ([]*types.Analysis, int64, error) {
	out := []*types.Analysis{}
	if ownerUserID == uuid.Nil {
		return out, 0, nil
	}
	base := func() *gorm.DB {
		q := r.tx(dbc).Model(&types.Analysis{}).Where("owner_user_id = ?", ownerUserID)
		if f.Type != "" {
			q = q.Where("type = ?", f.Type)
		}
		if f.Kind != "" {
			q = q.Where("kind = ?", f.Kind)
		}
		if f.DocumentID != nil && *f.DocumentID != uuid.Nil {
			q = q.Where("document_id = ?", *f.DocumentID)
		}
		return q
	}
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	// List rows skip the heavy columns; GetForOwner returns them.
	if err := base().Omit("input_text", "chunks").
		Order("created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *analysisRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.tx(dbc).Model(&types.Analysis{}).Where("id = ?", id).Updates(updates).Error
}

func (r *analysisRepo) SoftDelete(dbc dbctx.Context, ownerUserID, id uuid.UUID) (bool, error) {
	res := r.tx(dbc).Where("id = ? AND owner_user_id = ?", id, ownerUserID).Delete(&types.Analysis{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
