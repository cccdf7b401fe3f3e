package service

import (
	"context"
	"testing"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQuestionLogService_History(t *testing.T) {
	ctx := context.Background()

	logRepo := new(MockQuestionLogRepository)
	svc := NewQuestionLogService(logRepo, new(MockDashboardRepository))

	logs := []*domain.QuestionLog{
		{ID: "q-2", DocumentID: "doc-1", Question: "later", CreatedAt: time.Now().UTC()},
		{ID: "q-1", DocumentID: "doc-1", Question: "earlier", CreatedAt: time.Now().UTC().Add(-time.Hour)},
	}
	logRepo.On("ListByDocument", mock.Anything, "doc-1", 50).Return(logs, nil)

	got, err := svc.History(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q-2", got[0].ID)
}

func TestQuestionLogService_Dashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("assembles aggregates", func(t *testing.T) {
		dashboard := new(MockDashboardRepository)
		svc := NewQuestionLogService(new(MockQuestionLogRepository), dashboard)

		dashboard.On("CountDocuments", mock.Anything).Return(12, nil)
		dashboard.On("CountQuestions", mock.Anything).Return(340, nil)
		dashboard.On("AverageConfidence", mock.Anything).Return(0.72, nil)
		dashboard.On("TopDocumentsByQuestions", mock.Anything, 5).Return([]DocumentQuestionCount{
			{DocumentID: "doc-1", Title: "Manual", QuestionCount: 99},
		}, nil)
		dashboard.On("RecentQuestions", mock.Anything, 10).Return([]*domain.QuestionLog{
			{ID: "q-1", DocumentID: "doc-1", Question: "how"},
		}, nil)
		dashboard.On("DailyQuestionCounts", mock.Anything, 30).Return([]DailyQuestionCount{
			{Day: time.Now().UTC().Truncate(24 * time.Hour), Count: 7},
		}, nil)

		stats, err := svc.Dashboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, 12, stats.TotalDocuments)
		assert.Equal(t, 340, stats.TotalQuestions)
		assert.Equal(t, 0.72, stats.AverageConfidence)
		require.Len(t, stats.TopDocuments, 1)
		assert.Equal(t, 99, stats.TopDocuments[0].QuestionCount)
		assert.Len(t, stats.RecentQuestions, 1)
		assert.Len(t, stats.DailyCounts, 1)

		dashboard.AssertExpectations(t)
	})

	t.Run("propagates aggregate failure", func(t *testing.T) {
		dashboard := new(MockDashboardRepository)
		svc := NewQuestionLogService(new(MockQuestionLogRepository), dashboard)

		dashboard.On("CountDocuments", mock.Anything).Return(0, assert.AnError)

		_, err := svc.Dashboard(ctx)
		assert.ErrorIs(t, err, assert.AnError)
	})
}
