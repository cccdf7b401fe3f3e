package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/service"
)

// QuestionLogRepository stores the append-only question log and serves the
// dashboard aggregates over it.
type QuestionLogRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionLogRepository(pool *pgxpool.Pool) *QuestionLogRepository {
	return &QuestionLogRepository{pool: pool}
}

func (r *QuestionLogRepository) Create(ctx context.Context, entry *domain.QuestionLog) error {
	rankedJSON, err := json.Marshal(entry.Ranked)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO question_logs (id, document_id, question, answer, confidence, ranked, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.DocumentID, entry.Question, entry.Answer, entry.Confidence, rankedJSON, entry.CreatedAt,
	)
	return err
}

func (r *QuestionLogRepository) GetByID(ctx context.Context, id string) (*domain.QuestionLog, error) {
	var entry domain.QuestionLog
	var rankedJSON []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, document_id, question, answer, confidence, ranked, created_at
		 FROM question_logs WHERE id = $1`,
		id,
	).Scan(&entry.ID, &entry.DocumentID, &entry.Question, &entry.Answer, &entry.Confidence, &rankedJSON, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQuestionLogNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(rankedJSON, &entry.Ranked); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *QuestionLogRepository) ListByDocument(ctx context.Context, documentID string, limit int) ([]*domain.QuestionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, question, answer, confidence, ranked, created_at
		 FROM question_logs
		 WHERE document_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		documentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestionLogRows(rows)
}

func (r *QuestionLogRepository) CountDocuments(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

func (r *QuestionLogRepository) CountQuestions(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM question_logs`).Scan(&count)
	return count, err
}

func (r *QuestionLogRepository) AverageConfidence(ctx context.Context) (float64, error) {
	var avg float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(confidence), 0) FROM question_logs`,
	).Scan(&avg)
	return avg, err
}

func (r *QuestionLogRepository) TopDocumentsByQuestions(ctx context.Context, limit int) ([]service.DocumentQuestionCount, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx,
		`SELECT d.id, d.title, COUNT(q.id) AS question_count
		 FROM documents d
		 JOIN question_logs q ON q.document_id = d.id
		 GROUP BY d.id, d.title
		 ORDER BY question_count DESC, d.id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []service.DocumentQuestionCount
	for rows.Next() {
		var item service.DocumentQuestionCount
		if err := rows.Scan(&item.DocumentID, &item.Title, &item.QuestionCount); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *QuestionLogRepository) RecentQuestions(ctx context.Context, limit int) ([]*domain.QuestionLog, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, document_id, question, answer, confidence, ranked, created_at
		 FROM question_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestionLogRows(rows)
}

func (r *QuestionLogRepository) DailyQuestionCounts(ctx context.Context, days int) ([]service.DailyQuestionCount, error) {
	if days <= 0 {
		days = 30
	}
	rows, err := r.pool.Query(ctx,
		`SELECT date_trunc('day', created_at) AS day, COUNT(*)
		 FROM question_logs
		 WHERE created_at >= NOW() - ($1 || ' days')::interval
		 GROUP BY day
		 ORDER BY day ASC`,
		days,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []service.DailyQuestionCount
	for rows.Next() {
		var item service.DailyQuestionCount
		if err := rows.Scan(&item.Day, &item.Count); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func scanQuestionLogRows(rows pgx.Rows) ([]*domain.QuestionLog, error) {
	var results []*domain.QuestionLog
	for rows.Next() {
		var entry domain.QuestionLog
		var rankedJSON []byte
		if err := rows.Scan(&entry.ID, &entry.DocumentID, &entry.Question, &entry.Answer, &entry.Confidence, &rankedJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rankedJSON, &entry.Ranked); err != nil {
			return nil, err
		}
		results = append(results, &entry)
	}
	return results, rows.Err()
}
