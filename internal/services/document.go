package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/originality-backend/internal/data/repos"
	types "github.com/yungbote/originality-backend/internal/domain"
	"github.com/yungbote/originality-backend/internal/domain/documents"
	"github.com/yungbote/originality-backend/internal/ingestion/extractor"
	"github.com/yungbote/originality-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/originality-backend/internal/pkg/errors"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/platform/logger"
	"github.com/yungbote/originality-backend/internal/textchunk"
)

type UploadInput struct {
	Filename string
	MimeType string
	Title    string
	Data     []byte
}

type DocumentUpdate struct {
	Title *string `json:"title,omitempty"`
	Text  *string `json:"text,omitempty"`
}

type DocumentService interface {
	Upload(ctx context.Context, ownerUserID uuid.UUID, in UploadInput) (*types.Document, error)
	CreateFromText(ctx context.Context, ownerUserID uuid.UUID, title, text string) (*types.Document, error)
	List(ctx context.Context, ownerUserID uuid.UUID, limit, offset int) ([]*types.Document, int64, error)
	Get(ctx context.Context, ownerUserID, id uuid.UUID) (*types.Document, error)
	Update(ctx context.Context, ownerUserID, id uuid.UUID, upd DocumentUpdate) (*types.Document, error)
	Delete(ctx context.Context, ownerUserID, id uuid.UUID) error
	Chunks(ctx context.Context, ownerUserID, id uuid.UUID, words int) ([]textchunk.Chunk, error)
}

type documentService struct {
	db             *gorm.DB
	log            *logger.Logger
	repo           repos.DocumentRepo
	extractor      *extractor.Extractor
	maxUploadBytes int64
	chunkWords     int
}

func NewDocumentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.DocumentRepo,
	ex *extractor.Extractor,
	maxUploadBytes int64,
	chunkWords int,
) DocumentService {
	if ex == nil {
		ex = extractor.New(nil)
	}
	if chunkWords <= 0 {
		chunkWords = textchunk.DefaultMaxWords
	}
	return &documentService{
		db:             db,
		log:            baseLog.With("service", "DocumentService"),
		repo:           repo,
		extractor:      ex,
		maxUploadBytes: maxUploadBytes,
		chunkWords:     chunkWords,
	}
}

func (s *documentService) Upload(ctx context.Context, ownerUserID uuid.UUID, in UploadInput) (*types.Document, error) {
	if ownerUserID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if s.maxUploadBytes > 0 && int64(len(in.Data)) > s.maxUploadBytes {
		return nil, apierr.New(http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("%w: upload exceeds %d bytes", pkgerrors.ErrInvalidArgument, s.maxUploadBytes))
	}
	res, err := s.extractor.Extract(ctx, in.Filename, in.MimeType, in.Data)
	if err != nil {
		return nil, mapExtractErr(err)
	}
	text := textchunk.Normalize(res.Text)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(in.Filename), filepath.Ext(in.Filename))
	}
	if title == "" || title == "." {
		title = "Untitled"
	}
	var warnings datatypes.JSON
	if len(res.Warnings) > 0 {
		b, _ := json.Marshal(res.Warnings)
		warnings = datatypes.JSON(b)
	}
	doc := &types.Document{
		OwnerUserID: ownerUserID,
		Title:       title,
		Source:      documents.SourceUpload,
		Kind:        string(res.Kind),
		Filename:    filepath.Base(in.Filename),
		MimeType:    in.MimeType,
		SizeBytes:   int64(len(in.Data)),
		Pages:       res.Pages,
		Text:        text,
		WordCount:   textchunk.CountWords(text),
		Warnings:    warnings,
	}
	if _, err := s.repo.Create(dbctx.New(ctx), []*types.Document{doc}); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.log.Info("Document uploaded", "document_id", doc.ID, "kind", doc.Kind, "words", doc.WordCount, "bytes", doc.SizeBytes)
	return doc, nil
}

func (s *documentService) CreateFromText(ctx context.Context, ownerUserID uuid.UUID, title, text string) (*types.Document, error) {
	if ownerUserID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	text = textchunk.Normalize(text)
	if text == "" {
		return nil, apierr.BadRequest("empty_text", "text is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle(text)
	}
	doc := &types.Document{
		OwnerUserID: ownerUserID,
		Title:       title,
		Source:      documents.SourceText,
		Kind:        string(extractor.KindText),
		SizeBytes:   int64(len(text)),
		Text:        text,
		WordCount:   textchunk.CountWords(text),
	}
	if _, err := s.repo.Create(dbctx.New(ctx), []*types.Document{doc}); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, ownerUserID uuid.UUID, limit, offset int) ([]*types.Document, int64, error) {
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListForOwner(dbctx.New(ctx), ownerUserID, limit, offset)
}

func (s *documentService) Get(ctx context.Context, ownerUserID, id uuid.UUID) (*types.Document, error) {
	doc, err := s.repo.GetForOwner(dbctx.New(ctx), ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apierr.NotFound("document_not_found", "document")
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, ownerUserID, id uuid.UUID, upd DocumentUpdate) (*types.Document, error) {
	updates := map[string]interface{}{}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, apierr.BadRequest("empty_title", "title cannot be empty")
		}
		updates["title"] = title
	}
	if upd.Text != nil {
		text := textchunk.Normalize(*upd.Text)
		if text == "" {
			return nil, apierr.BadRequest("empty_text", "text cannot be empty")
		}
		updates["text"] = text
		updates["word_count"] = textchunk.CountWords(text)
		updates["size_bytes"] = int64(len(text))
	}
	if len(updates) == 0 {
		return s.Get(ctx, ownerUserID, id)
	}
	ok, err := s.repo.UpdateFields(dbctx.New(ctx), ownerUserID, id, updates)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if !ok {
		return nil, apierr.NotFound("document_not_found", "document")
	}
	return s.Get(ctx, ownerUserID, id)
}

func (s *documentService) Delete(ctx context.Context, ownerUserID, id uuid.UUID) error {
	ok, err := s.repo.SoftDelete(dbctx.New(ctx), ownerUserID, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if !ok {
		return apierr.NotFound("document_not_found", "document")
	}
	return nil
}

func (s *documentService) Chunks(ctx context.Context, ownerUserID, id uuid.UUID, words int) ([]textchunk.Chunk, error) {
	doc, err := s.Get(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	if words <= 0 {
		words = s.chunkWords
	}
	chunks := textchunk.Split(doc.Text, textchunk.Options{MaxWords: words})
	if chunks == nil {
		chunks = []textchunk.Chunk{}
	}
	return chunks, nil
}

func mapExtractErr(err error) error {
	switch {
	case errors.Is(err, extractor.ErrUnsupported):
		return apierr.New(http.StatusUnsupportedMediaType, "unsupported_media_type", fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
	case errors.Is(err, extractor.ErrEmpty), errors.Is(err, extractor.ErrNoText):
		return apierr.New(http.StatusUnprocessableEntity, "no_text", fmt.Errorf("%w: %v", pkgerrors.ErrInvalidArgument, err))
	}
	return wrapLLMErr(fmt.Errorf("extract: %w", err))
}

// defaultTitle takes the first line of text, capped at a readable length.
func defaultTitle(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	fields := strings.Fields(line)
	if len(fields) > 10 {
		fields = append(fields[:10], "...")
	}
	if len(fields) == 0 {
		return "Untitled"
	}
	return strings.Join(fields, " ")
}
