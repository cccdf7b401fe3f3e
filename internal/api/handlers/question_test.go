package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAnswerService struct {
	mock.Mock
}

func (m *MockAnswerService) Answer(ctx context.Context, documentID, question string) (*service.AnswerOutput, error) {
	args := m.Called(ctx, documentID, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnswerOutput), args.Error(1)
}

func (m *MockAnswerService) Summarize(ctx context.Context, documentID string) (string, error) {
	args := m.Called(ctx, documentID)
	return args.String(0), args.Error(1)
}

type MockQuestionHistoryService struct {
	mock.Mock
}

func (m *MockQuestionHistoryService) History(ctx context.Context, documentID string, limit int) ([]*domain.QuestionLog, error) {
	args := m.Called(ctx, documentID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.QuestionLog), args.Error(1)
}

func newAnswerOutput() *service.AnswerOutput {
	return &service.AnswerOutput{
		Answer:     "The warranty lasts two years.",
		Confidence: 0.84,
		Ranked: []domain.RankedChunk{
			{ChunkID: "chunk-1", ChunkIndex: 0, Content: "Warranty text", LexicalScore: 1, SemanticScore: 0.8, FusedScore: 0.9},
		},
		ChunkIDs: []string{"chunk-1"},
		LogID:    "log-1",
	}
}

func TestQuestionHandler_Ask_Success(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	mockHistory := new(MockQuestionHistoryService)
	handler := NewQuestionHandler(mockAnswers, mockHistory)

	mockAnswers.On("Answer", mock.Anything, "doc-123", "How long is the warranty?").Return(newAnswerOutput(), nil)

	body := `{"question":"How long is the warranty?"}`
	req := requestWithID(http.MethodPost, "/documents/doc-123/questions", "doc-123", []byte(body))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "The warranty lasts two years.", data["answer"])
	assert.InDelta(t, 0.84, data["confidence"].(float64), 1e-9)
	sources := data["sources"].([]interface{})
	require.Len(t, sources, 1)
	first := sources[0].(map[string]interface{})
	assert.Equal(t, "chunk-1", first["chunk_id"])
	mockAnswers.AssertExpectations(t)
}

func TestQuestionHandler_Ask_MissingQuestion(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	handler := NewQuestionHandler(mockAnswers, new(MockQuestionHistoryService))

	body := `{}`
	req := requestWithID(http.MethodPost, "/documents/doc-123/questions", "doc-123", []byte(body))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "question is required")
	mockAnswers.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuestionHandler_Ask_InvalidJSON(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	handler := NewQuestionHandler(mockAnswers, new(MockQuestionHistoryService))

	req := requestWithID(http.MethodPost, "/documents/doc-123/questions", "doc-123", []byte(`{broken`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestQuestionHandler_Ask_DocumentNotFound(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	handler := NewQuestionHandler(mockAnswers, new(MockQuestionHistoryService))

	mockAnswers.On("Answer", mock.Anything, "doc-123", "anything?").Return(nil, domain.ErrDocumentNotFound)

	body := `{"question":"anything?"}`
	req := requestWithID(http.MethodPost, "/documents/doc-123/questions", "doc-123", []byte(body))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockAnswers.AssertExpectations(t)
}

func TestQuestionHandler_Ask_DocumentNotIndexed(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	handler := NewQuestionHandler(mockAnswers, new(MockQuestionHistoryService))

	mockAnswers.On("Answer", mock.Anything, "doc-123", "anything?").Return(nil, domain.ErrDocumentNotIndexed)

	body := `{"question":"anything?"}`
	req := requestWithID(http.MethodPost, "/documents/doc-123/questions", "doc-123", []byte(body))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockAnswers.AssertExpectations(t)
}

func TestQuestionHandler_Ask_GenerationFailure(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	handler := NewQuestionHandler(mockAnswers, new(MockQuestionHistoryService))

	mockAnswers.On("Answer", mock.Anything, "doc-123", "anything?").
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "failed to generate answer", assert.AnError))

	body := `{"question":"anything?"}`
	req := requestWithID(http.MethodPost, "/documents/doc-123/questions", "doc-123", []byte(body))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	mockAnswers.AssertExpectations(t)
}

func TestQuestionHandler_Summarize_Success(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	handler := NewQuestionHandler(mockAnswers, new(MockQuestionHistoryService))

	mockAnswers.On("Summarize", mock.Anything, "doc-123").Return("A short summary.", nil)

	req := requestWithID(http.MethodPost, "/documents/doc-123/summary", "doc-123", nil)
	w := httptest.NewRecorder()

	handler.Summarize(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A short summary.")
	mockAnswers.AssertExpectations(t)
}

func TestQuestionHandler_History_Success(t *testing.T) {
	mockHistory := new(MockQuestionHistoryService)
	handler := NewQuestionHandler(new(MockAnswerService), mockHistory)

	logs := []*domain.QuestionLog{
		{
			ID:         "log-1",
			DocumentID: "doc-123",
			Question:   "How long is the warranty?",
			Answer:     "Two years.",
			Confidence: 0.8,
			Ranked:     []domain.RankedChunk{{ChunkID: "chunk-1", FusedScore: 0.9}},
			CreatedAt:  time.Date(2025, 6, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600)),
		},
	}
	mockHistory.On("History", mock.Anything, "doc-123", 5).Return(logs, nil)

	req := requestWithID(http.MethodGet, "/documents/doc-123/questions?limit=5", "doc-123", nil)
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "How long is the warranty?", first["question"])
	assert.Equal(t, "2025-06-01T10:30:00+02:00", first["created_at"])
	mockHistory.AssertExpectations(t)
}

func TestQuestionHandler_History_DefaultLimit(t *testing.T) {
	mockHistory := new(MockQuestionHistoryService)
	handler := NewQuestionHandler(new(MockAnswerService), mockHistory)

	mockHistory.On("History", mock.Anything, "doc-123", 0).Return([]*domain.QuestionLog{}, nil)

	req := requestWithID(http.MethodGet, "/documents/doc-123/questions", "doc-123", nil)
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockHistory.AssertExpectations(t)
}

func TestQuestionHandler_Ask_EmptyBodyReader(t *testing.T) {
	mockAnswers := new(MockAnswerService)
	handler := NewQuestionHandler(mockAnswers, new(MockQuestionHistoryService))

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-123/questions", bytes.NewReader(nil))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
