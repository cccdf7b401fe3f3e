package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/index"
	"github.com/refdesk-ai/refdesk/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// RetrievalConfig collects every tunable of the hybrid retrieval pipeline
// in one place instead of scattering ad hoc defaults through the code.
type RetrievalConfig struct {
	K1                  float64 // BM25 term-frequency saturation
	B                   float64 // BM25 length normalization
	Alpha               float64 // Fusion weight on the lexical score, in [0,1]
	TopK                int     // Chunks returned per query
	CandidateMultiplier int     // Candidates fetched per method: m = multiplier * TopK
	AmbiguityGap        float64 // Fused-score gap below which confidence is dampened
	RemoveStopWords     bool
}

// DefaultRetrievalConfig returns the documented default tuning.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		K1:                  index.DefaultK1,
		B:                   index.DefaultB,
		Alpha:               0.5,
		TopK:                5,
		CandidateMultiplier: 3,
		AmbiguityGap:        0.05,
	}
}

// Validate rejects tunings that would produce degenerate rankings.
func (cfg RetrievalConfig) Validate() error {
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return domain.ErrInvalidFusionWeight
	}
	if cfg.TopK <= 0 {
		return domain.NewDomainError(domain.ErrCodeConfig, "top k must be positive")
	}
	if cfg.CandidateMultiplier < 1 {
		return domain.NewDomainError(domain.ErrCodeConfig, "candidate multiplier must be at least 1")
	}
	return nil
}

// Ranker fuses lexical and semantic retrieval over a document's index
// snapshot into a single ranked chunk list with a confidence score.
type Ranker struct {
	registry *IndexRegistry
	embedder EmbeddingClient
	cfg      RetrievalConfig
}

// NewRanker creates a Ranker over the given registry and embedding client.
func NewRanker(registry *IndexRegistry, embedder EmbeddingClient, cfg RetrievalConfig) *Ranker {
	return &Ranker{registry: registry, embedder: embedder, cfg: cfg}
}

type fusionCandidate struct {
	ordinal    int
	lexical    float64
	semantic   float64
	lexicalOK  bool
	semanticOK bool
	fused      float64
}

// Rank retrieves the top-k chunks for a query against one document.
// A document with no installed index yields an empty ranking with
// confidence 0, not an error. The returned ordering is deterministic for
// unchanged indexes.
func (r *Ranker) Rank(ctx context.Context, documentID, query string) (*domain.QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Ranker.Rank", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "rank",
	})
	defer span.End()

	result := &domain.QueryResult{
		Query:      query,
		DocumentID: documentID,
		Ranked:     []domain.RankedChunk{},
		CreatedAt:  time.Now().UTC(),
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return result, nil
	}

	snap, ok := r.registry.Get(documentID)
	if !ok || len(snap.Chunks) == 0 {
		return result, nil
	}

	m := r.cfg.TopK * r.cfg.CandidateMultiplier

	terms := index.Tokenize(query, index.TokenizerConfig{RemoveStopWords: r.cfg.RemoveStopWords})
	lexicalHits := snap.Lexical.Query(terms, m)

	queryVector, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to embed query", err)
	}

	semanticHits, err := snap.Semantic.Query(queryVector, m)
	if err != nil {
		if errors.Is(err, index.ErrDimensionMismatch) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeDimensionMismatch, "query embedding dimension mismatch", err)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "semantic query failed", err)
	}

	candidates := make(map[int]*fusionCandidate)
	for _, h := range lexicalHits {
		candidates[h.Ordinal] = &fusionCandidate{ordinal: h.Ordinal, lexical: h.Score, lexicalOK: true}
	}
	for _, h := range semanticHits {
		cand, ok := candidates[h.Ordinal]
		if !ok {
			cand = &fusionCandidate{ordinal: h.Ordinal}
			candidates[h.Ordinal] = cand
		}
		cand.semantic = h.Score
		cand.semanticOK = true
	}

	if len(candidates) == 0 {
		return result, nil
	}

	fuse(candidates, r.cfg.Alpha)

	ordered := make([]*fusionCandidate, 0, len(candidates))
	for _, cand := range candidates {
		ordered = append(ordered, cand)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].fused != ordered[j].fused {
			return ordered[i].fused > ordered[j].fused
		}
		if ordered[i].semantic != ordered[j].semantic {
			return ordered[i].semantic > ordered[j].semantic
		}
		return ordered[i].ordinal < ordered[j].ordinal
	})

	if len(ordered) > r.cfg.TopK {
		ordered = ordered[:r.cfg.TopK]
	}

	for _, cand := range ordered {
		chunk := snap.Chunks[cand.ordinal]
		result.Ranked = append(result.Ranked, domain.RankedChunk{
			ChunkID:       chunk.ID,
			ChunkIndex:    chunk.Index,
			Content:       chunk.Content,
			LexicalScore:  cand.lexical,
			SemanticScore: cand.semantic,
			FusedScore:    cand.fused,
		})
	}

	result.Confidence = r.confidence(ordered)
	return result, nil
}

// fuse min-max normalizes each method's scores over the candidate set and
// combines them as alpha*lexical + (1-alpha)*semantic. Normalization guards
// against the scale mismatch between BM25's unbounded scores and cosine's
// [-1,1] range; a candidate missing from one method contributes 0 for it.
func fuse(candidates map[int]*fusionCandidate, alpha float64) {
	lexMin, lexMax := scoreRange(candidates, func(c *fusionCandidate) (float64, bool) { return c.lexical, c.lexicalOK })
	semMin, semMax := scoreRange(candidates, func(c *fusionCandidate) (float64, bool) { return c.semantic, c.semanticOK })

	for _, cand := range candidates {
		var lex, sem float64
		if cand.lexicalOK {
			lex = normalize(cand.lexical, lexMin, lexMax)
		}
		if cand.semanticOK {
			sem = normalize(cand.semantic, semMin, semMax)
		}
		cand.fused = alpha*lex + (1-alpha)*sem
	}
}

func scoreRange(candidates map[int]*fusionCandidate, get func(*fusionCandidate) (float64, bool)) (min, max float64) {
	first := true
	for _, cand := range candidates {
		score, ok := get(cand)
		if !ok {
			continue
		}
		if first {
			min, max = score, score
			first = false
			continue
		}
		if score < min {
			min = score
		}
		if score > max {
			max = score
		}
	}
	return min, max
}

const minScoreSpread = 1e-9

// normalize maps score into [0,1]. When every candidate scored the same,
// everything maps to 1 rather than 0 so a uniformly strong method still
// contributes.
func normalize(score, min, max float64) float64 {
	if max-min < minScoreSpread {
		return 1
	}
	return (score - min) / (max - min)
}

// confidence is the top fused score, dampened proportionally when the
// runner-up is close enough that the retrieval is ambiguous.
func (r *Ranker) confidence(ordered []*fusionCandidate) float64 {
	if len(ordered) == 0 {
		return 0
	}

	conf := ordered[0].fused
	if len(ordered) >= 2 && r.cfg.AmbiguityGap > 0 {
		gap := ordered[0].fused - ordered[1].fused
		if gap < r.cfg.AmbiguityGap {
			conf *= gap / r.cfg.AmbiguityGap
		}
	}

	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}
