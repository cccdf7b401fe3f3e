package domain

import "time"

// RankedChunk is one entry of a hybrid retrieval result: the chunk plus the
// scores each method assigned to it and the fused score that ordered it.
type RankedChunk struct {
	ChunkID       string  `json:"chunk_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Content       string  `json:"content,omitempty"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	FusedScore    float64 `json:"fused_score"`
}

// QueryResult captures one retrieval run. Immutable after creation; it is
// persisted as part of the question log so ranking quality stays auditable
// even when answer generation fails.
type QueryResult struct {
	Query      string
	DocumentID string
	Ranked     []RankedChunk
	Confidence float64 // In [0,1]; 0 when nothing was retrieved
	CreatedAt  time.Time
}

// TopChunkIDs returns the IDs of the ranked chunks in order.
func (r *QueryResult) TopChunkIDs() []string {
	ids := make([]string, 0, len(r.Ranked))
	for _, rc := range r.Ranked {
		ids = append(ids, rc.ChunkID)
	}
	return ids
}

// QuestionLog is the persisted record of a question: the retrieval result
// plus the generated answer. Append-only; the dashboard aggregates over it.
type QuestionLog struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Confidence float64       `json:"confidence"`
	Ranked     []RankedChunk `json:"ranked,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// ValidateQuestionLog validates a QuestionLog instance
func ValidateQuestionLog(q *QuestionLog) error {
	if q == nil {
		return NewDomainError(ErrCodeValidation, "question log cannot be nil")
	}
	if q.ID == "" {
		return NewDomainError(ErrCodeValidation, "question log ID is required")
	}
	if q.DocumentID == "" {
		return NewDomainError(ErrCodeValidation, "question log document ID is required")
	}
	if q.Question == "" {
		return ErrEmptyQuestion
	}
	if q.Confidence < 0 || q.Confidence > 1 {
		return NewDomainError(ErrCodeValidation, "question log confidence must be in [0,1]")
	}
	return nil
}
