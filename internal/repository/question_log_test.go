//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuestionLog(documentID, question string, confidence float64) *domain.QuestionLog {
	return &domain.QuestionLog{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Question:   question,
		Answer:     "an answer",
		Confidence: confidence,
		Ranked: []domain.RankedChunk{
			{ChunkID: uuid.NewString(), ChunkIndex: 0, LexicalScore: 1, SemanticScore: 0.8, FusedScore: 0.9},
			{ChunkID: uuid.NewString(), ChunkIndex: 3, LexicalScore: 0.2, SemanticScore: 0.5, FusedScore: 0.35},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestQuestionLogRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	logRepo := NewQuestionLogRepository(pool)

	doc := newTestDocument("Logged Document")
	require.NoError(t, docRepo.Create(ctx, doc))

	entry := newTestQuestionLog(doc.ID, "what is this about?", 0.72)
	require.NoError(t, logRepo.Create(ctx, entry))

	got, err := logRepo.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Question, got.Question)
	assert.Equal(t, entry.Answer, got.Answer)
	assert.InDelta(t, 0.72, got.Confidence, 1e-9)
	require.Len(t, got.Ranked, 2)
	assert.Equal(t, entry.Ranked[0].ChunkID, got.Ranked[0].ChunkID)
	assert.InDelta(t, 0.9, got.Ranked[0].FusedScore, 1e-9)
	assert.Equal(t, 3, got.Ranked[1].ChunkIndex)

	_, err = logRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrQuestionLogNotFound)
}

func TestQuestionLogRepository_ListByDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	logRepo := NewQuestionLogRepository(pool)

	doc := newTestDocument("History Document")
	require.NoError(t, docRepo.Create(ctx, doc))
	other := newTestDocument("Other Document")
	require.NoError(t, docRepo.Create(ctx, other))

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		entry := newTestQuestionLog(doc.ID, fmt.Sprintf("question %d", i), 0.5)
		entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, logRepo.Create(ctx, entry))
	}
	require.NoError(t, logRepo.Create(ctx, newTestQuestionLog(other.ID, "unrelated", 0.5)))

	logs, err := logRepo.ListByDocument(ctx, doc.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "question 2", logs[0].Question)
	assert.Equal(t, "question 0", logs[2].Question)

	limited, err := logRepo.ListByDocument(ctx, doc.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestQuestionLogRepository_DashboardAggregates(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	logRepo := NewQuestionLogRepository(pool)

	busy := newTestDocument("Busy Document")
	require.NoError(t, docRepo.Create(ctx, busy))
	quiet := newTestDocument("Quiet Document")
	require.NoError(t, docRepo.Create(ctx, quiet))
	silent := newTestDocument("Silent Document")
	require.NoError(t, docRepo.Create(ctx, silent))

	for i := 0; i < 3; i++ {
		require.NoError(t, logRepo.Create(ctx, newTestQuestionLog(busy.ID, fmt.Sprintf("busy %d", i), 0.8)))
	}
	require.NoError(t, logRepo.Create(ctx, newTestQuestionLog(quiet.ID, "quiet 0", 0.4)))

	docs, err := logRepo.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, docs)

	questions, err := logRepo.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, questions)

	avg, err := logRepo.AverageConfidence(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, avg, 1e-9)

	top, err := logRepo.TopDocumentsByQuestions(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, busy.ID, top[0].DocumentID)
	assert.Equal(t, "Busy Document", top[0].Title)
	assert.Equal(t, 3, top[0].QuestionCount)
	assert.Equal(t, quiet.ID, top[1].DocumentID)
	assert.Equal(t, 1, top[1].QuestionCount)

	recent, err := logRepo.RecentQuestions(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	daily, err := logRepo.DailyQuestionCounts(ctx, 30)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 4, daily[0].Count)
}

func TestQuestionLogRepository_AverageConfidenceEmpty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	logRepo := NewQuestionLogRepository(pool)

	avg, err := logRepo.AverageConfidence(ctx)
	require.NoError(t, err)
	assert.Zero(t, avg)
}
