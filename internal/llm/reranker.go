package llm

import (
	"context"
	"fmt"
	"math"
	"sort"

	"stationflow/internal/action"
)

// EmbeddingReranker implements action.Reranker by embedding the query
// and every candidate document and ranking by cosine similarity. No
// dedicated cross-encoder model client exists in the example corpus
// this module draws its dependency stack from, so reranking reuses the
// embedding model already wired for vector_db_ingestion/vector_db_query
// rather than introducing an unproven dependency for one handler.
type EmbeddingReranker struct {
	embedder action.Embedder
	model    string
}

func NewEmbeddingReranker(embedder action.Embedder, embeddingModel string) *EmbeddingReranker {
	return &EmbeddingReranker{embedder: embedder, model: embeddingModel}
}

func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]action.RerankedDocument, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	texts := append([]string{query}, documents...)
	embeddings, err := r.embedder.Embed(ctx, r.model, texts)
	if err != nil {
		return nil, fmt.Errorf("embed rerank candidates: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(texts))
	}
	queryVec := embeddings[0]

	out := make([]action.RerankedDocument, len(documents))
	for i, doc := range documents {
		out[i] = action.RerankedDocument{
			Index: i,
			Text:  doc,
			Score: cosine(queryVec, embeddings[i+1]),
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
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
