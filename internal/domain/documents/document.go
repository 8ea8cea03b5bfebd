package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SourceUpload = "upload"
	SourceText   = "text"
)

// Document is a user's text, either pasted or extracted from an upload.
type Document struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Source      string    `gorm:"column:source;not null" json:"source"`
	// Kind is the extractor kind (pdf, docx, audio, text...).
	Kind      string `gorm:"column:kind;not null;index" json:"kind"`
	Filename  string `gorm:"column:filename" json:"filename,omitempty"`
	MimeType  string `gorm:"column:mime_type" json:"mime_type,omitempty"`
	SizeBytes int64  `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`
	Pages     int    `gorm:"column:pages;not null;default:0" json:"pages,omitempty"`

	Text      string `gorm:"column:text;type:text;not null" json:"text,omitempty"`
	WordCount int    `gorm:"column:word_count;not null;default:0" json:"word_count"`

	Warnings datatypes.JSON `gorm:"column:warnings" json:"warnings,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
