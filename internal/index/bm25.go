package index

import (
	"math"
	"sort"
)

const (
	// DefaultK1 controls term-frequency saturation.
	DefaultK1 = 1.5
	// DefaultB controls document-length normalization.
	DefaultB = 0.75
)

// BM25Params holds the tunable BM25 scoring parameters.
type BM25Params struct {
	K1 float64
	B  float64
}

// DefaultBM25Params returns the standard parameter values.
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: DefaultK1, B: DefaultB}
}

// Hit is a scored chunk reference returned by index queries.
type Hit struct {
	ChunkID string
	Ordinal int
	Score   float64
}

type posting struct {
	ordinal int
	tf      int
}

// BM25Index is an immutable inverted index over chunk tokens.
type BM25Index struct {
	params   BM25Params
	postings map[string][]posting
	chunkIDs []string // ordinal -> chunk ID
	lengths  []int    // ordinal -> token count
	avgdl    float64
}

// NewBM25Index builds an inverted index from tokenized chunks. chunkIDs and
// tokenized must be parallel slices; build cost is linear in total tokens.
func NewBM25Index(chunkIDs []string, tokenized [][]string, params BM25Params) *BM25Index {
	if params.K1 <= 0 {
		params.K1 = DefaultK1
	}
	if params.B < 0 || params.B > 1 {
		params.B = DefaultB
	}

	idx := &BM25Index{
		params:   params,
		postings: make(map[string][]posting),
		chunkIDs: append([]string(nil), chunkIDs...),
		lengths:  make([]int, len(tokenized)),
	}

	totalTokens := 0
	for ord, tokens := range tokenized {
		idx.lengths[ord] = len(tokens)
		totalTokens += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term, count := range tf {
			idx.postings[term] = append(idx.postings[term], posting{ordinal: ord, tf: count})
		}
	}

	if len(tokenized) > 0 {
		idx.avgdl = float64(totalTokens) / float64(len(tokenized))
	}

	return idx
}

// Len returns the number of indexed chunks.
func (idx *BM25Index) Len() int {
	return len(idx.chunkIDs)
}

// idf uses the standard smoothed formulation; always non-negative.
func (idx *BM25Index) idf(term string) float64 {
	n := float64(len(idx.postings[term]))
	N := float64(len(idx.chunkIDs))
	return math.Log((N-n+0.5)/(n+0.5) + 1)
}

// Score computes the BM25 score of one chunk for the given query terms.
// Terms absent from the index contribute zero.
func (idx *BM25Index) Score(terms []string, ordinal int) float64 {
	if ordinal < 0 || ordinal >= len(idx.chunkIDs) {
		return 0
	}

	var score float64
	for _, term := range terms {
		list, ok := idx.postings[term]
		if !ok {
			continue
		}
		for _, p := range list {
			if p.ordinal != ordinal {
				continue
			}
			score += idx.termScore(term, p.tf, idx.lengths[ordinal])
			break
		}
	}
	return score
}

func (idx *BM25Index) termScore(term string, tf, docLen int) float64 {
	k1 := idx.params.K1
	b := idx.params.B

	norm := 1 - b
	if idx.avgdl > 0 {
		norm = 1 - b + b*float64(docLen)/idx.avgdl
	}

	f := float64(tf)
	return idx.idf(term) * (f * (k1 + 1)) / (f + k1*norm)
}

// Query scores every chunk containing at least one query term and returns
// the topN hits ordered by descending score, ties broken by ordinal so the
// result order is deterministic. Cost is O(query terms x postings per term).
func (idx *BM25Index) Query(terms []string, topN int) []Hit {
	if topN <= 0 || len(terms) == 0 || len(idx.chunkIDs) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, term := range terms {
		for _, p := range idx.postings[term] {
			scores[p.ordinal] += idx.termScore(term, p.tf, idx.lengths[p.ordinal])
		}
	}

	hits := make([]Hit, 0, len(scores))
	for ord, score := range scores {
		hits = append(hits, Hit{ChunkID: idx.chunkIDs[ord], Ordinal: ord, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits
}
