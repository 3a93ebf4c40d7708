package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stationflow/internal/graph"
	"stationflow/internal/template"
)

// HTTPDoer is satisfied by *http.Client; narrowed so tests can fake it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPRequestHandler issues exactly one HTTP request per invocation.
// Retries are a routing concern: a caller that wants to retry a failing
// call wires the step's on_failure edge back to itself.
type HTTPRequestHandler struct {
	client HTTPDoer
}

func NewHTTPRequestHandler(client HTTPDoer) *HTTPRequestHandler {
	return &HTTPRequestHandler{client: client}
}

func (h *HTTPRequestHandler) Execute(ctx context.Context, step graph.Step, env Envelope) Result {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	method := strings.ToUpper(step.HTTPMethod)
	if method == "" {
		method = http.MethodGet
	}
	url := template.StringValue(env, step.URLTemplate)
	if url == "" {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: http_request %q: url_template resolved empty", ErrConfigurationError, step.StepID)}
	}

	var body io.Reader
	if len(step.BodyTemplate) > 0 {
		resolved, err := template.JSON(env, step.BodyTemplate)
		if err != nil {
			return Result{Status: StatusFailed, Err: fmt.Errorf("%w: http_request %q: %v", ErrTemplateError, step.StepID, err)}
		}
		if resolved != nil {
			b, err := json.Marshal(resolved)
			if err != nil {
				return Result{Status: StatusFailed, Err: fmt.Errorf("%w: http_request %q: %v", ErrTemplateError, step.StepID, err)}
			}
			body = bytes.NewReader(b)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: http_request %q: %v", ErrConfigurationError, step.StepID, err)}
	}

	headers, err := template.JSONObject(env, step.HeadersTemplate)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: http_request %q: %v", ErrTemplateError, step.StepID, err)}
	}
	for k, v := range headers {
		if s, ok := v.(string); ok {
			req.Header.Set(k, s)
		}
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: http_request %q: %v", ErrExternalService, step.StepID, err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: StatusFailed, Err: fmt.Errorf("%w: http_request %q: reading response: %v", ErrExternalService, step.StepID, err)}
	}

	output := map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     flattenHeader(resp.Header),
		"body":        parseBody(respBody),
	}

	if resp.StatusCode >= 400 {
		return Result{Status: StatusFailed, Output: output, Err: fmt.Errorf("%w: http_request %q: status %d", ErrExternalService, step.StepID, resp.StatusCode)}
	}
	return Result{Status: StatusComplete, Output: output}
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func parseBody(b []byte) interface{} {
	var v interface{}
	if json.Unmarshal(b, &v) == nil {
		return v
	}
	return string(b)
}
