package service

import (
	"sync"
	"time"

	"github.com/refdesk-ai/refdesk/internal/domain"
	"github.com/refdesk-ai/refdesk/internal/index"
)

// IndexSnapshot bundles one document's retrieval indexes with the chunk
// metadata needed to turn hits back into text. A snapshot is immutable;
// rebuilding a document produces a fresh snapshot that replaces the old one
// in a single registry write, so readers are never blocked by a rebuild.
type IndexSnapshot struct {
	DocumentID string
	Chunks     []domain.Chunk // ordered by chunk index, embeddings stripped
	Lexical    *index.BM25Index
	Semantic   index.VectorSearcher
	BuiltAt    time.Time
}

// ChunkByID returns the chunk with the given ID, or nil.
func (s *IndexSnapshot) ChunkByID(chunkID string) *domain.Chunk {
	for i := range s.Chunks {
		if s.Chunks[i].ID == chunkID {
			return &s.Chunks[i]
		}
	}
	return nil
}

// IndexRegistry holds the live index snapshot per document. There is no
// process-wide singleton; callers share one registry instance through
// dependency wiring.
type IndexRegistry struct {
	mu        sync.RWMutex
	snapshots map[string]*IndexSnapshot
}

// NewIndexRegistry creates an empty registry.
func NewIndexRegistry() *IndexRegistry {
	return &IndexRegistry{snapshots: make(map[string]*IndexSnapshot)}
}

// Get returns the current snapshot for a document, if one is installed.
func (r *IndexRegistry) Get(documentID string) (*IndexSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.snapshots[documentID]
	return snap, ok
}

// Swap installs a new snapshot for its document, replacing any previous
// one. In-flight queries keep reading the snapshot they already hold.
func (r *IndexRegistry) Swap(snap *IndexSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snap.DocumentID] = snap
}

// Remove drops a document's snapshot, typically on document deletion.
func (r *IndexRegistry) Remove(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.snapshots, documentID)
}

// Len returns the number of installed snapshots.
func (r *IndexRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshots)
}
