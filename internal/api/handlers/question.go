package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/refdesk-ai/refdesk/internal/api"
	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/service"
)

type AnswerService interface {
	Answer(ctx context.Context, documentID, question string) (*service.AnswerOutput, error)
	Summarize(ctx context.Context, documentID string) (string, error)
}

type QuestionHistoryService interface {
	History(ctx context.Context, documentID string, limit int) ([]*domain.QuestionLog, error)
}

type QuestionHandler struct {
	answers AnswerService
	history QuestionHistoryService
}

func NewQuestionHandler(answers AnswerService, history QuestionHistoryService) *QuestionHandler {
	return &QuestionHandler{answers: answers, history: history}
}

type AskRequest struct {
	Question string `json:"question"`
}

type RankedChunkResponse struct {
	ChunkID       string  `json:"chunk_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Content       string  `json:"content,omitempty"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	FusedScore    float64 `json:"fused_score"`
}

type AskResponse struct {
	Answer     string                `json:"answer"`
	Confidence float64               `json:"confidence"`
	Sources    []RankedChunkResponse `json:"sources"`
	LogID      string                `json:"log_id,omitempty"`
}

func rankedToResponse(ranked []domain.RankedChunk) []RankedChunkResponse {
	out := make([]RankedChunkResponse, len(ranked))
	for i, rc := range ranked {
		out[i] = RankedChunkResponse{
			ChunkID:       rc.ChunkID,
			ChunkIndex:    rc.ChunkIndex,
			Content:       rc.Content,
			LexicalScore:  rc.LexicalScore,
			SemanticScore: rc.SemanticScore,
			FusedScore:    rc.FusedScore,
		}
	}
	return out
}

func (h *QuestionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	output, err := h.answers.Answer(r.Context(), id, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:     output.Answer,
		Confidence: output.Confidence,
		Sources:    rankedToResponse(output.Ranked),
		LogID:      output.LogID,
	})
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

func (h *QuestionHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	summary, err := h.answers.Summarize(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SummaryResponse{Summary: summary})
}

type QuestionLogResponse struct {
	ID         string                `json:"id"`
	DocumentID string                `json:"document_id"`
	Question   string                `json:"question"`
	Answer     string                `json:"answer"`
	Confidence float64               `json:"confidence"`
	Sources    []RankedChunkResponse `json:"sources"`
	CreatedAt  string                `json:"created_at"`
}

type QuestionHistoryResponse struct {
	Items []*QuestionLogResponse `json:"items"`
}

func (h *QuestionHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.history.History(r.Context(), id, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*QuestionLogResponse, len(logs))
	for i, entry := range logs {
		responses[i] = &QuestionLogResponse{
			ID:         entry.ID,
			DocumentID: entry.DocumentID,
			Question:   entry.Question,
			Answer:     entry.Answer,
			Confidence: entry.Confidence,
			Sources:    rankedToResponse(entry.Ranked),
			CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
		}
	}

	api.Success(w, http.StatusOK, QuestionHistoryResponse{Items: responses})
}
