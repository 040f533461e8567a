package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dmsapi/internal/naming"
	"dmsapi/internal/resilience"
)

// HTTPStatusError is a non-2xx response from the model server.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama generate status: %s", e.Status)
	}
	return fmt.Sprintf("ollama generate status: %s: %s", e.Status, strings.TrimSpace(e.Body))
}

// Ollama asks a local Ollama server for rename suggestions.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	types      []naming.DocType
}

// NewOllama builds a client. The HTTP transport is traced with otelhttp.
// executor may be nil.
func NewOllama(baseURL, model string, timeout time.Duration, executor *resilience.Executor, types []naming.DocType) *Ollama {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		executor: executor,
		types:    types,
	}
}

func (o *Ollama) Suggest(ctx context.Context, filename string) (Suggestion, error) {
	reqBody := map[string]any{
		"model":  o.model,
		"prompt": buildRenamePrompt(filename, o.types),
		"stream": false,
		"format": "json",
	}
	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return o.postJSON(ctx, "/api/generate", reqBody, &response)
	}
	var err error
	if o.executor != nil {
		err = o.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return Suggestion{}, err
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(extractJSONObject(response.Response)), &s); err != nil {
		return Suggestion{}, fmt.Errorf("parse suggestion json: %w", err)
	}
	s.Suggested = strings.TrimSpace(s.Suggested)
	return s, nil
}

func (o *Ollama) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode generate response: %w", err)
	}
	return nil
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}
