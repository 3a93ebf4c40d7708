package action

import (
	"context"
	"fmt"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// CrossEncoderRerankHandler reranks the documents resolved from
// prompt_template's whole-placeholder (typically {input.documents} from
// a prior vector_db_query) against the query, keeping rerank_top_n.
type CrossEncoderRerankHandler struct {
	reranker Reranker
}

func NewCrossEncoderRerankHandler(reranker Reranker) *CrossEncoderRerankHandler {
	return &CrossEncoderRerankHandler{reranker: reranker}
}

func (h *CrossEncoderRerankHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	raw := template.String(env, step.PromptTemplate)
	docs, err := toDocuments(raw)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: cross_encoder_rerank %q: %v", ErrTemplateError, step.StepID, err)}
	}

	topN := step.RerankTopN
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	ranked, err := h.reranker.Rerank(ctx, env.Query(), docs, topN)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: cross_encoder_rerank %q: %v", ErrExternalService, step.StepID, err)}
	}
	return Result{Status: StatusComplete, Output: ranked}
}

// toDocuments accepts a single string, a []VectorMatch (vector_db_query's
// output), or a []interface{} of strings/VectorMatch-like maps (a "text"
// or "Text" field), and normalises to a plain []string.
func toDocuments(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []VectorMatch:
		out := make([]string, 0, len(t))
		for _, m := range t {
			out = append(out, m.Text)
		}
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch e := item.(type) {
			case string:
				out = append(out, e)
			case map[string]interface{}:
				if s, ok := e["text"].(string); ok {
					out = append(out, s)
					continue
				}
				if s, ok := e["Text"].(string); ok {
					out = append(out, s)
					continue
				}
				return nil, fmt.Errorf("document entry missing a \"text\" field")
			default:
				return nil, fmt.Errorf("unsupported document entry type %T", item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("prompt_template must resolve to a string or a list of documents, got %T", v)
	}
}
