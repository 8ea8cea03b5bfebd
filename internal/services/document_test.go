package services

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestDocumentTextLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.docs.CreateFromText(ctx, f.owner, "", "First line of the essay\n\nSecond paragraph here.")
	if err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}
	if doc.Title != "First line of the essay" || doc.WordCount != 8 || doc.Kind != "text" {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	newText := strings.Repeat("word ", 25)
	updated, err := f.docs.Update(ctx, f.owner, doc.ID, DocumentUpdate{Text: &newText})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.WordCount != 25 {
		t.Fatalf("word count = %d, want 25", updated.WordCount)
	}

	chunks, err := f.docs.Chunks(ctx, f.owner, doc.ID, 10)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}

	list, total, err := f.docs.List(ctx, f.owner, 0, 0)
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("List: %v total=%d len=%d", err, total, len(list))
	}

	if _, err := f.docs.Get(ctx, uuid.New(), doc.ID); err == nil {
		t.Fatalf("other owners must not see the document")
	}
	if err := f.docs.Delete(ctx, f.owner, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = f.docs.Get(ctx, f.owner, doc.ID)
	if status, _ := statusOf(t, err); status != http.StatusNotFound {
		t.Fatalf("after delete: %d", status)
	}
}

func TestDocumentUpload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	doc, err := f.docs.Upload(ctx, f.owner, UploadInput{
		Filename: "notes/essay.txt",
		MimeType: "text/plain",
		Data:     []byte("An uploaded essay about method."),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Title != "essay" || doc.Filename != "essay.txt" || doc.WordCount != 5 || doc.Source != "upload" {
		t.Fatalf("unexpected doc: %+v", doc)
	}

	_, err = f.docs.Upload(ctx, f.owner, UploadInput{Filename: "empty.txt"})
	if status, _ := statusOf(t, err); status != http.StatusUnprocessableEntity {
		t.Fatalf("empty upload: %d", status)
	}

	big := make([]byte, 2<<20)
	_, err = f.docs.Upload(ctx, f.owner, UploadInput{Filename: "big.txt", Data: big})
	if status, _ := statusOf(t, err); status != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload: %d", status)
	}
}

func TestDocumentUpdateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	doc, err := f.docs.CreateFromText(ctx, f.owner, "Title", "Some text")
	if err != nil {
		t.Fatalf("CreateFromText: %v", err)
	}
	blank := "  "
	_, err = f.docs.Update(ctx, f.owner, doc.ID, DocumentUpdate{Title: &blank})
	if _, code := statusOf(t, err); code != "empty_title" {
		t.Fatalf("code = %s", code)
	}
	title := "Renamed"
	_, err = f.docs.Update(ctx, f.owner, uuid.New(), DocumentUpdate{Title: &title})
	if status, _ := statusOf(t, err); status != http.StatusNotFound {
		t.Fatalf("missing doc: %d", status)
	}
}
