package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/pagination"
	"github.com/refdesk-ai/refdesk/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, title, content, status, source_name, storage_key, chunk_count, uploaded_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Title, d.Content, d.Status, nullableString(d.SourceName), nullableString(d.StorageKey), d.ChunkCount, d.UploadedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	var sourceName, storageKey *string
	err := r.db.QueryRow(ctx,
		`SELECT id, title, content, status, source_name, storage_key, chunk_count, uploaded_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.Title, &d.Content, &d.Status, &sourceName, &storageKey, &d.ChunkCount, &d.UploadedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if sourceName != nil {
		d.SourceName = *sourceName
	}
	if storageKey != nil {
		d.StorageKey = *storageKey
	}
	return &d, nil
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, title, content, status, source_name, storage_key, chunk_count, uploaded_at, updated_at
			 FROM documents
			 WHERE (uploaded_at, id) < ($1, $2)
			 ORDER BY uploaded_at DESC, id DESC
			 LIMIT $3`,
			cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, title, content, status, source_name, storage_key, chunk_count, uploaded_at, updated_at
			 FROM documents
			 ORDER BY uploaded_at DESC, id DESC
			 LIMIT $1`,
			limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UploadedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET title = $1, content = $2, status = $3, source_name = $4, storage_key = $5, chunk_count = $6, updated_at = $7
		 WHERE id = $8`,
		d.Title, d.Content, d.Status, nullableString(d.SourceName), nullableString(d.StorageKey), d.ChunkCount, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) UpdateChunkCount(ctx context.Context, id string, count int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET chunk_count = $1, updated_at = $2 WHERE id = $3`,
		count, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Delete removes the document; chunks, index jobs, and question logs cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// ListIndexed returns the IDs of documents whose indexes can be rebuilt
// from stored chunks, used at startup.
func (r *DocumentRepository) ListIndexed(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM documents WHERE status = $1 ORDER BY uploaded_at ASC`,
		domain.DocumentStatusIndexed,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		var d domain.Document
		var sourceName, storageKey *string
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Status, &sourceName, &storageKey, &d.ChunkCount, &d.UploadedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if sourceName != nil {
			d.SourceName = *sourceName
		}
		if storageKey != nil {
			d.StorageKey = *storageKey
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}
