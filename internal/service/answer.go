package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/telemetry"
)

// Generator defines the interface for the generative model that composes
// answers and summaries from retrieved text.
type Generator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

// ChunkRanker defines the retrieval interface the answer composer depends on.
type ChunkRanker interface {
	Rank(ctx context.Context, documentID, query string) (*domain.QueryResult, error)
}

// QuestionLogRepository persists question logs.
type QuestionLogRepository interface {
	Create(ctx context.Context, entry *domain.QuestionLog) error
}

// DocumentGetter resolves a document by ID so questions against unknown
// documents fail with a not-found error instead of an empty retrieval.
type DocumentGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// FallbackAnswer is returned when retrieval finds nothing relevant enough to
// ground an answer in. The generator is not called in that case.
const FallbackAnswer = "I could not find relevant information in this document to answer your question."

// summaryChunkLimit bounds how many leading chunks feed the summary prompt.
const summaryChunkLimit = 6

// DefaultConfidenceThreshold is the fused-score floor below which the
// fallback answer is returned instead of calling the generator.
const DefaultConfidenceThreshold = 0.35

// AnswerConfig holds the tunables of the answer composer.
type AnswerConfig struct {
	// Timeout bounds each generator call. Zero means no timeout.
	Timeout time.Duration
	// ConfidenceThreshold is the minimum top fused score required before
	// the generator is consulted.
	ConfidenceThreshold float64
}

// DefaultAnswerConfig returns the default answer composer configuration.
func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{
		Timeout:             30 * time.Second,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// AnswerService composes grounded answers: it ranks chunks for a question,
// builds a sources-only prompt, calls the generator under a timeout, and
// appends the outcome to the question log.
type AnswerService struct {
	ranker    ChunkRanker
	generator Generator
	docs      DocumentGetter
	logRepo   QuestionLogRepository
	uuidGen   UUIDGenerator
	cfg       AnswerConfig
}

// NewAnswerService creates a new AnswerService instance.
func NewAnswerService(ranker ChunkRanker, generator Generator, docs DocumentGetter, logRepo QuestionLogRepository, cfg AnswerConfig) *AnswerService {
	return &AnswerService{
		ranker:    ranker,
		generator: generator,
		docs:      docs,
		logRepo:   logRepo,
		uuidGen:   &DefaultUUIDGenerator{},
		cfg:       cfg,
	}
}

// NewAnswerServiceWithUUIDGen creates an AnswerService with a custom UUID
// generator (for testing).
func NewAnswerServiceWithUUIDGen(ranker ChunkRanker, generator Generator, docs DocumentGetter, logRepo QuestionLogRepository, cfg AnswerConfig, uuidGen UUIDGenerator) *AnswerService {
	s := NewAnswerService(ranker, generator, docs, logRepo, cfg)
	s.uuidGen = uuidGen
	return s
}

// AnswerOutput is the result of answering one question.
type AnswerOutput struct {
	Answer     string
	Confidence float64
	Ranked     []domain.RankedChunk
	ChunkIDs   []string
	LogID      string
}

// Answer ranks chunks for the question, composes a grounded answer from
// them, and logs the exchange. When retrieval comes back empty, or the top
// fused score sits below the confidence threshold, the fixed fallback text
// is returned without calling the generator and the retrieval is still
// logged. A generator failure is surfaced to the caller, but the retrieval
// result is logged with an empty answer so the question remains auditable.
func (s *AnswerService) Answer(ctx context.Context, documentID, question string) (*AnswerOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Answer", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "answer",
	})
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	result, err := s.ranker.Rank(ctx, documentID, question)
	if err != nil {
		return nil, err
	}

	if len(result.Ranked) == 0 || result.Confidence < s.cfg.ConfidenceThreshold {
		out := &AnswerOutput{
			Answer:     FallbackAnswer,
			Confidence: result.Confidence,
			Ranked:     result.Ranked,
			ChunkIDs:   result.TopChunkIDs(),
		}
		logID, logErr := s.logQuestion(ctx, documentID, question, out.Answer, result)
		if logErr != nil {
			return nil, logErr
		}
		out.LogID = logID
		return out, nil
	}

	answer, genErr := s.generate(ctx, buildAnswerPrompt(question, result.Ranked))

	// Log before deciding the outcome so a generator failure still leaves
	// the retrieval on record.
	logID, logErr := s.logQuestion(ctx, documentID, question, answer, result)
	if logErr != nil {
		return nil, logErr
	}

	if genErr != nil {
		span.SetError(genErr)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "answer generation failed", genErr)
	}

	return &AnswerOutput{
		Answer:     answer,
		Confidence: result.Confidence,
		Ranked:     result.Ranked,
		ChunkIDs:   result.TopChunkIDs(),
		LogID:      logID,
	}, nil
}

// Summarize produces a short summary of a document from its leading chunks.
// When the generator fails, the leading text itself is returned truncated,
// so the endpoint degrades instead of erroring.
func (s *AnswerService) Summarize(ctx context.Context, documentID string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnswerService.Summarize", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "summarize",
	})
	defer span.End()

	leading, err := s.leadingText(ctx, documentID)
	if err != nil {
		return "", err
	}
	if leading == "" {
		return "", domain.ErrDocumentNotIndexed
	}

	summary, genErr := s.generate(ctx, buildSummaryPrompt(leading))
	if genErr != nil {
		telemetry.CaptureError(ctx, genErr)
		return truncate(leading, 500), nil
	}
	return summary, nil
}

func (s *AnswerService) generate(ctx context.Context, prompt string) (string, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.generator.GenerateAnswer(ctx, prompt)
}

func (s *AnswerService) logQuestion(ctx context.Context, documentID, question, answer string, result *domain.QueryResult) (string, error) {
	entry := &domain.QuestionLog{
		ID:         s.uuidGen.NewString(),
		DocumentID: documentID,
		Question:   question,
		Answer:     answer,
		Confidence: result.Confidence,
		Ranked:     result.Ranked,
		CreatedAt:  time.Now().UTC(),
	}
	if err := domain.ValidateQuestionLog(entry); err != nil {
		return "", err
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// leadingText joins the first chunks of the document's snapshot in document
// order. ChunkRanker is intentionally narrow, so the snapshot is reached
// through the concrete Ranker when available.
func (s *AnswerService) leadingText(ctx context.Context, documentID string) (string, error) {
	ranker, ok := s.ranker.(*Ranker)
	if !ok {
		return "", domain.NewDomainError(domain.ErrCodeInvalidOperation, "summary requires snapshot-backed retrieval")
	}
	snap, ok := ranker.registry.Get(documentID)
	if !ok || len(snap.Chunks) == 0 {
		return "", nil
	}

	limit := summaryChunkLimit
	if limit > len(snap.Chunks) {
		limit = len(snap.Chunks)
	}
	parts := make([]string, 0, limit)
	for _, c := range snap.Chunks[:limit] {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// buildAnswerPrompt renders ranked chunks as numbered source blocks followed
// by the question. The system prompt on the generator side restricts the
// model to these sources.
func buildAnswerPrompt(question string, ranked []domain.RankedChunk) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the sources below.\n\n")
	for i, rc := range ranked {
		fmt.Fprintf(&b, "[Source %d]\n%s\n\n", i+1, rc.Content)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

func buildSummaryPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Summarize the following document excerpt in a few sentences. ")
	b.WriteString("Use only the provided text.\n\n")
	b.WriteString(text)
	return b.String()
}

func truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
