package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stationflow/internal/action"
)

type fakeEmbedder struct {
	byText map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.byText[t]
	}
	return out, nil
}

func TestEmbeddingReranker_OrdersBySimilarityToQuery(t *testing.T) {
	emb := &fakeEmbedder{byText: map[string][]float32{
		"outage report":     {1, 0},
		"printer is jammed": {1, 0},
		"invoice overdue":   {0, 1},
	}}
	r := NewEmbeddingReranker(emb, "embed-model")

	ranked, err := r.Rerank(context.Background(), "outage report", []string{"invoice overdue", "printer is jammed"}, 1)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	require.Equal(t, "printer is jammed", ranked[0].Text)
}

func TestRouter_PicksAnthropicForClaudeModels(t *testing.T) {
	r := NewRouter(nil, &AnthropicClient{})
	_, err := r.pick("claude-sonnet-4-5")
	require.NoError(t, err)

	_, err = r.pick("gpt-5")
	require.Error(t, err) // no openai client configured
}

var _ action.Reranker = (*EmbeddingReranker)(nil)
