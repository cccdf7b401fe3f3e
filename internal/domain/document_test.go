package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocument(t *testing.T) {
	now := time.Now()
	doc := NewDocument("doc1", "Handbook", "some extracted text", now)

	assert.Equal(t, "doc1", doc.ID)
	assert.Equal(t, "Handbook", doc.Title)
	assert.Equal(t, "some extracted text", doc.Content)
	assert.Equal(t, DocumentStatusUploaded, doc.Status)
	assert.Equal(t, now, doc.UploadedAt)
	assert.Equal(t, now, doc.UpdatedAt)
}

func TestValidateDocument(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		doc     *Document
		wantErr bool
	}{
		{
			name:    "valid document",
			doc:     NewDocument("doc1", "Handbook", "text", now),
			wantErr: false,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: true,
		},
		{
			name: "missing ID",
			doc: &Document{
				Title:      "Handbook",
				Status:     DocumentStatusUploaded,
				UploadedAt: now,
			},
			wantErr: true,
		},
		{
			name: "missing title",
			doc: &Document{
				ID:         "doc1",
				Status:     DocumentStatusUploaded,
				UploadedAt: now,
			},
			wantErr: true,
		},
		{
			name: "invalid status",
			doc: &Document{
				ID:         "doc1",
				Title:      "Handbook",
				Status:     DocumentStatus("half-baked"),
				UploadedAt: now,
			},
			wantErr: true,
		},
		{
			name: "negative chunk count",
			doc: &Document{
				ID:         "doc1",
				Title:      "Handbook",
				Status:     DocumentStatusIndexed,
				ChunkCount: -1,
				UploadedAt: now,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocumentStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    DocumentStatus
		to      DocumentStatus
		allowed bool
	}{
		{"uploaded to chunked", DocumentStatusUploaded, DocumentStatusChunked, true},
		{"uploaded to failed", DocumentStatusUploaded, DocumentStatusFailed, true},
		{"uploaded to indexed skips chunked", DocumentStatusUploaded, DocumentStatusIndexed, false},
		{"chunked to indexed", DocumentStatusChunked, DocumentStatusIndexed, true},
		{"chunked to failed", DocumentStatusChunked, DocumentStatusFailed, true},
		{"indexed to uploaded on re-upload", DocumentStatusIndexed, DocumentStatusUploaded, true},
		{"indexed to chunked", DocumentStatusIndexed, DocumentStatusChunked, false},
		{"failed to uploaded on re-upload", DocumentStatusFailed, DocumentStatusUploaded, true},
		{"failed to chunked on retry", DocumentStatusFailed, DocumentStatusChunked, true},
		{"failed to indexed skips chunked", DocumentStatusFailed, DocumentStatusIndexed, false},
		{"invalid target", DocumentStatusUploaded, DocumentStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestValidateChunk(t *testing.T) {
	valid := &Chunk{
		ID:          "c1",
		DocumentID:  "doc1",
		Index:       0,
		Content:     "The cat sat on the mat.",
		StartOffset: 0,
		EndOffset:   23,
		TokenCount:  6,
	}
	require.NoError(t, ValidateChunk(valid))

	tests := []struct {
		name   string
		mutate func(c *Chunk)
	}{
		{"missing document ID", func(c *Chunk) { c.DocumentID = "" }},
		{"negative index", func(c *Chunk) { c.Index = -1 }},
		{"empty content", func(c *Chunk) { c.Content = "" }},
		{"negative start offset", func(c *Chunk) { c.StartOffset = -1 }},
		{"end before start", func(c *Chunk) { c.StartOffset = 10; c.EndOffset = 5 }},
		{"negative token count", func(c *Chunk) { c.TokenCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *valid
			tt.mutate(&c)
			assert.Error(t, ValidateChunk(&c))
		})
	}
}
