package service

import (
	"strings"
	"time"
	"unicode"

	"github.com/refdesk-ai/refdesk/internal/domain"
)

// ChunkConfig controls how document text is split into retrieval chunks.
// Sizes are in whitespace tokens, not characters.
type ChunkConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens:     120,
		OverlapTokens: 20,
	}
}

// Validate rejects configurations that could never terminate or would lose
// text. Called before any chunking or indexing happens.
func (cfg ChunkConfig) Validate() error {
	if cfg.MaxTokens <= 0 {
		return domain.ErrInvalidChunkSize
	}
	if cfg.OverlapTokens < 0 {
		return domain.NewDomainError(domain.ErrCodeConfig, "chunk overlap cannot be negative")
	}
	if cfg.OverlapTokens >= cfg.MaxTokens {
		return domain.ErrChunkOverlapTooLarge
	}
	return nil
}

// span is one whitespace-delimited token with its rune offsets into the
// source text.
type span struct {
	start int
	end   int
}

// ChunkDocument splits text into overlapping chunks of at most
// cfg.MaxTokens tokens each, preferring sentence boundaries. Offsets are
// absolute rune positions into text so every chunk traces back to its
// source. Empty or blank text yields no chunks and no error.
func ChunkDocument(documentID, text string, cfg ChunkConfig) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	spans := tokenSpans(runes)
	if len(spans) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(spans)/cfg.MaxTokens+1)

	start := 0
	for start < len(spans) {
		end := start + cfg.MaxTokens
		if end > len(spans) {
			end = len(spans)
		} else {
			// Prefer ending on a sentence boundary, as long as that
			// still moves past the overlap region.
			if cut := sentenceCut(runes, spans, start+cfg.OverlapTokens, end); cut > 0 {
				end = cut
			}
		}

		first := spans[start]
		last := spans[end-1]
		chunks = append(chunks, domain.Chunk{
			DocumentID:  documentID,
			Index:       len(chunks),
			Content:     string(runes[first.start:last.end]),
			StartOffset: first.start,
			EndOffset:   last.end,
			TokenCount:  end - start,
			CreatedAt:   now,
		})

		if end >= len(spans) {
			break
		}
		start = end - cfg.OverlapTokens
	}

	return chunks, nil
}

// tokenSpans records the rune offsets of each whitespace-delimited token.
func tokenSpans(runes []rune) []span {
	var spans []span
	inToken := false
	start := 0
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if inToken {
				spans = append(spans, span{start: start, end: i})
				inToken = false
			}
			continue
		}
		if !inToken {
			start = i
			inToken = true
		}
	}
	if inToken {
		spans = append(spans, span{start: start, end: len(runes)})
	}
	return spans
}

// sentenceCut scans backwards from end for the latest token ending a
// sentence, returning the token position to cut at, or 0 when no boundary
// falls past minEnd. Cuts past minEnd keep the chunk sequence advancing
// even with overlap applied.
func sentenceCut(runes []rune, spans []span, minEnd, end int) int {
	for i := end; i > minEnd; i-- {
		tok := string(runes[spans[i-1].start:spans[i-1].end])
		if strings.HasSuffix(tok, ".") || strings.HasSuffix(tok, "!") || strings.HasSuffix(tok, "?") {
			return i
		}
	}
	return 0
}
