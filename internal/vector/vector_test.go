package vector

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"stationflow/internal/action"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vectors[t]
	}
	return out, nil
}

func TestStore_IngestThenQueryOrdersByCosineSimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"printer is jammed":   {1, 0},
		"billing invoice due": {0, 1},
		"printer query":       {1, 0},
	}}
	s := New(afero.NewMemMapFs(), "/vectors", emb)

	err := s.Ingest(context.Background(), "tickets", "embed-model", []action.VectorDocument{
		{ID: "1", Text: "printer is jammed"},
		{ID: "2", Text: "billing invoice due"},
	})
	require.NoError(t, err)

	matches, err := s.Query(context.Background(), "tickets", "embed-model", "printer query", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "1", matches[0].ID)
}

func TestStore_IngestUpsertsByID(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {0, 1}}}
	s := New(afero.NewMemMapFs(), "/vectors", emb)

	require.NoError(t, s.Ingest(context.Background(), "c", "m", []action.VectorDocument{{ID: "x", Text: "a"}}))
	require.NoError(t, s.Ingest(context.Background(), "c", "m", []action.VectorDocument{{ID: "x", Text: "b"}}))

	matches, err := s.Query(context.Background(), "c", "m", "b", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "b", matches[0].Text)
}
