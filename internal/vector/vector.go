// Package vector implements the Vector Store Adapter: per-collection
// embedding storage and cosine-similarity search for vector_db_ingestion
// and vector_db_query steps. No vector-database client ships in the
// example corpus this module was grounded on, so collections are kept
// as flat, mutex-guarded JSON files under a base directory (through
// afero, the filesystem abstraction the rest of the codebase uses for
// everything else file-shaped) rather than reaching for an unproven
// out-of-pack dependency.
package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"stationflow/internal/action"
)

// Embedder is the narrow embedding-model client the store needs.
type Embedder = action.Embedder

type storedDoc struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Embedding []float32              `json:"embedding"`
}

// Store implements action.VectorStore over a flat per-collection JSON
// file. Index scans are linear; this is sized for per-workflow
// collections, not a general-purpose vector database.
type Store struct {
	fs       afero.Fs
	baseDir  string
	embedder Embedder

	mu   sync.Mutex
	docs map[string][]storedDoc // collection -> docs, loaded lazily and cached
}

func New(fs afero.Fs, baseDir string, embedder Embedder) *Store {
	return &Store{fs: fs, baseDir: baseDir, embedder: embedder, docs: map[string][]storedDoc{}}
}

func (s *Store) collectionPath(collection string) string {
	return filepath.Join(s.baseDir, collection+".json")
}

func (s *Store) load(collection string) ([]storedDoc, error) {
	if docs, ok := s.docs[collection]; ok {
		return docs, nil
	}
	path := s.collectionPath(collection)
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("check collection %q: %w", collection, err)
	}
	if !exists {
		return nil, nil
	}
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read collection %q: %w", collection, err)
	}
	var docs []storedDoc
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("decode collection %q: %w", collection, err)
	}
	s.docs[collection] = docs
	return docs, nil
}

func (s *Store) save(collection string, docs []storedDoc) error {
	if err := s.fs.MkdirAll(s.baseDir, 0755); err != nil {
		return fmt.Errorf("create vector store directory: %w", err)
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode collection %q: %w", collection, err)
	}
	if err := afero.WriteFile(s.fs, s.collectionPath(collection), b, 0644); err != nil {
		return fmt.Errorf("write collection %q: %w", collection, err)
	}
	s.docs[collection] = docs
	return nil
}

// Ingest satisfies action.VectorStore: it embeds every doc's text and
// appends (or replaces, by id) the resulting vectors in collection.
func (s *Store) Ingest(ctx context.Context, collection, embeddingModel string, docs []action.VectorDocument) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	embeddings, err := s.embedder.Embed(ctx, embeddingModel, texts)
	if err != nil {
		return fmt.Errorf("embed documents for collection %q: %w", collection, err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(collection)
	if err != nil {
		return err
	}
	byID := make(map[string]int, len(existing))
	for i, d := range existing {
		byID[d.ID] = i
	}
	for i, d := range docs {
		sd := storedDoc{ID: d.ID, Text: d.Text, Metadata: d.Metadata, Embedding: embeddings[i]}
		if idx, ok := byID[d.ID]; ok {
			existing[idx] = sd
		} else {
			existing = append(existing, sd)
			byID[d.ID] = len(existing) - 1
		}
	}
	return s.save(collection, existing)
}

// Query satisfies action.VectorStore: embeds queryText and returns the
// topK nearest documents in collection by cosine similarity.
func (s *Store) Query(ctx context.Context, collection, embeddingModel, queryText string, topK int) ([]action.VectorMatch, error) {
	embeddings, err := s.embedder.Embed(ctx, embeddingModel, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("embed query for collection %q: %w", collection, err)
	}
	queryVec := embeddings[0]

	s.mu.Lock()
	docs, err := s.load(collection)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	matches := make([]action.VectorMatch, 0, len(docs))
	for _, d := range docs {
		matches = append(matches, action.VectorMatch{
			ID:       d.ID,
			Text:     d.Text,
			Score:    cosineSimilarity(queryVec, d.Embedding),
			Metadata: d.Metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
