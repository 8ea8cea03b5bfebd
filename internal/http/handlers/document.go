package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/originality-backend/internal/http/response"
	"github.com/yungbote/originality-backend/internal/platform/apierr"
	"github.com/yungbote/originality-backend/internal/services"
)

// multipartOverhead leaves room for form boundaries and the title field.
const multipartOverhead = 1 << 20

type DocumentHandler struct {
	docs           services.DocumentService
	maxUploadBytes int64
}

func NewDocumentHandler(docs services.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxUploadBytes: maxUploadBytes}
}

// POST /api/documents (multipart: file, title)
func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.RespondErr(c, apierr.New(http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("upload exceeds %d bytes", h.maxUploadBytes)))
			return
		}
		response.RespondErr(c, apierr.BadRequest("missing_file", "multipart field \"file\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondErr(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	limit := fh.Size + 1
	if h.maxUploadBytes > 0 {
		limit = h.maxUploadBytes + 1
	}
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		response.RespondErr(c, fmt.Errorf("read upload: %w", err))
		return
	}
	doc, err := h.docs.Upload(c.Request.Context(), ownerID(c), services.UploadInput{
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Title:    strings.TrimSpace(c.PostForm("title")),
		Data:     data,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// POST /api/documents/text
func (h *DocumentHandler) CreateText(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	doc, err := h.docs.CreateFromText(c.Request.Context(), ownerID(c), req.Title, req.Text)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"document": doc})
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	docs, total, err := h.docs.List(c.Request.Context(), ownerID(c), limit, offset)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs, "total": total})
}

// GET /api/documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := pathUUID(c, "id", "invalid_document_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	doc, err := h.docs.Get(c.Request.Context(), ownerID(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// PATCH /api/documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	id, err := pathUUID(c, "id", "invalid_document_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	var req services.DocumentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondErr(c, bindErr(err))
		return
	}
	doc, err := h.docs.Update(c.Request.Context(), ownerID(c), id, req)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := pathUUID(c, "id", "invalid_document_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if err := h.docs.Delete(c.Request.Context(), ownerID(c), id); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/documents/:id/chunks?words=N
func (h *DocumentHandler) Chunks(c *gin.Context) {
	id, err := pathUUID(c, "id", "invalid_document_id")
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	words, err := queryInt(c, "words", 0)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	chunks, err := h.docs.Chunks(c.Request.Context(), ownerID(c), id, words)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chunks": chunks, "count": len(chunks)})
}
