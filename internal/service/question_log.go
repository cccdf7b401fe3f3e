package service

import (
	"context"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/telemetry"
)

// QuestionLogReadRepository lists persisted question logs.
type QuestionLogReadRepository interface {
	ListByDocument(ctx context.Context, documentID string, limit int) ([]*domain.QuestionLog, error)
}

// DocumentQuestionCount pairs a document with its question volume.
type DocumentQuestionCount struct {
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"question_count"`
}

// DailyQuestionCount is the number of questions asked on one day.
type DailyQuestionCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// DashboardStats aggregates the question log for the portal dashboard.
type DashboardStats struct {
	TotalDocuments    int                     `json:"total_documents"`
	TotalQuestions    int                     `json:"total_questions"`
	AverageConfidence float64                 `json:"average_confidence"`
	TopDocuments      []DocumentQuestionCount `json:"top_documents"`
	RecentQuestions   []*domain.QuestionLog   `json:"recent_questions"`
	DailyCounts       []DailyQuestionCount    `json:"daily_counts"`
}

// DashboardRepository provides the aggregate queries behind the dashboard.
type DashboardRepository interface {
	CountDocuments(ctx context.Context) (int, error)
	CountQuestions(ctx context.Context) (int, error)
	AverageConfidence(ctx context.Context) (float64, error)
	TopDocumentsByQuestions(ctx context.Context, limit int) ([]DocumentQuestionCount, error)
	RecentQuestions(ctx context.Context, limit int) ([]*domain.QuestionLog, error)
	DailyQuestionCounts(ctx context.Context, days int) ([]DailyQuestionCount, error)
}

const (
	dashboardTopDocuments    = 5
	dashboardRecentQuestions = 10
	dashboardDailyWindow     = 30
)

// QuestionLogService reads the append-only question log for history views
// and dashboard aggregates.
type QuestionLogService struct {
	logRepo   QuestionLogReadRepository
	dashboard DashboardRepository
}

// NewQuestionLogService creates a new QuestionLogService instance
func NewQuestionLogService(logRepo QuestionLogReadRepository, dashboard DashboardRepository) *QuestionLogService {
	return &QuestionLogService{logRepo: logRepo, dashboard: dashboard}
}

// History returns a document's questions, most recent first.
func (s *QuestionLogService) History(ctx context.Context, documentID string, limit int) ([]*domain.QuestionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.logRepo.ListByDocument(ctx, documentID, limit)
}

// Dashboard assembles the portal dashboard from aggregate queries.
func (s *QuestionLogService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "QuestionLogService.Dashboard", telemetry.SpanAttributes{
		Operation: "dashboard",
	})
	defer span.End()

	totalDocs, err := s.dashboard.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	totalQuestions, err := s.dashboard.CountQuestions(ctx)
	if err != nil {
		return nil, err
	}
	avgConfidence, err := s.dashboard.AverageConfidence(ctx)
	if err != nil {
		return nil, err
	}
	topDocs, err := s.dashboard.TopDocumentsByQuestions(ctx, dashboardTopDocuments)
	if err != nil {
		return nil, err
	}
	recent, err := s.dashboard.RecentQuestions(ctx, dashboardRecentQuestions)
	if err != nil {
		return nil, err
	}
	daily, err := s.dashboard.DailyQuestionCounts(ctx, dashboardDailyWindow)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalDocuments:    totalDocs,
		TotalQuestions:    totalQuestions,
		AverageConfidence: avgConfidence,
		TopDocuments:      topDocs,
		RecentQuestions:   recent,
		DailyCounts:       daily,
	}, nil
}
