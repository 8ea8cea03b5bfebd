package analyses

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Analysis types. An assessment carries one of the scoring kinds; the others
// leave Kind empty (comparison stores it in the result).
const (
	TypeAssessment     = "assessment"
	TypeComparison     = "comparison"
	TypeRewrite        = "rewrite"
	TypeReconstruction = "reconstruction"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

type Analysis struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	DocumentID  *uuid.UUID `gorm:"type:uuid;index" json:"document_id,omitempty"`
	JobID       *uuid.UUID `gorm:"type:uuid;index" json:"job_id,omitempty"`

	Type     string `gorm:"column:type;not null;index" json:"type"`
	Kind     string `gorm:"column:kind;index" json:"kind,omitempty"`
	Provider string `gorm:"column:provider;not null" json:"provider"`
	Model    string `gorm:"column:model;not null" json:"model"`
	Status   string `gorm:"column:status;not null;index" json:"status"`

	// Score is the headline number: assessment score, rewrite estimate,
	// reconstruction cogency, or passage A's score for comparisons.
	Score *float64 `gorm:"column:score" json:"score,omitempty"`

	Title      string `gorm:"column:title" json:"title,omitempty"`
	InputText  string `gorm:"column:input_text;type:text" json:"input_text,omitempty"`
	ChunkWords int    `gorm:"column:chunk_words;not null;default:0" json:"chunk_words"`
	ChunkCount int    `gorm:"column:chunk_count;not null;default:0" json:"chunk_count"`
	WordCount  int    `gorm:"column:word_count;not null;default:0" json:"word_count"`

	Request datatypes.JSON `gorm:"column:request" json:"request,omitempty"`
	Result  datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	// Chunks holds per-chunk results for multi-chunk runs.
	Chunks datatypes.JSON `gorm:"column:chunks" json:"chunks,omitempty"`
	Error  string         `gorm:"column:error" json:"error,omitempty"`

	DurationMS int64 `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Analysis) TableName() string { return "analysis" }

func (a *Analysis) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
