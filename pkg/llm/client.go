package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Client is the LLM backend contract a reasoning loop calls against.
// ChatOptions fields left at their zero value fall back to the client's
// configured defaults.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (ChatResponse, error)
	Embedding(ctx context.Context, input []string) (EmbeddingResponse, error)
	ListModels(ctx context.Context) (ModelsResponse, error)
}

// ChatOptions overrides the client's configured defaults for a single
// call. A nil/zero value for Temperature/MaxTokens/ResponseFormat/Stream
// means "use the client's default".
type ChatOptions struct {
	Temperature    *float64
	MaxTokens      *int
	ResponseFormat string // "json" or "" (default)
	Stream         *bool
}

// HTTPClient is a thin OpenAI-compatible HTTP client: it builds URLs
// from Config's configurable service paths, authenticates by bearer API
// key or by a signin exchange, and decodes the JSON response bodies
// above into the corresponding Go types.
type HTTPClient struct {
	config     Config
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

func NewHTTPClient(config Config, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &HTTPClient{config: config, httpClient: httpClient}
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// authenticate exchanges email/password for a bearer token once, caching
// it for the lifetime of the client. It is a no-op when auth is disabled
// or a token is already cached.
func (c *HTTPClient) authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return nil
	}
	if !c.config.AuthEnabled || c.config.Email == "" || c.config.Password == "" {
		return nil
	}

	url := joinURL(c.config.BaseURL, c.config.AuthService)
	payload := map[string]string{"email": c.config.Email, "password": c.config.Password}
	body, err := json.Marshal(payload)
	if err != nil {
		return newError(ErrorKindDecode, "encode signin payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return newError(ErrorKindConnection, "build signin request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(ErrorKindDecode, "read signin response", err)
	}
	if resp.StatusCode >= 300 {
		return newError(ErrorKindHTTP, fmt.Sprintf("signin returned HTTP %d: %s", resp.StatusCode, string(data)), nil)
	}

	var decoded struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return newError(ErrorKindDecode, "decode signin response", err)
	}
	if decoded.Token == "" {
		return newError(ErrorKindAuthentication, "authentication failed: no token in response", nil)
	}
	c.token = decoded.Token
	return nil
}

func (c *HTTPClient) headers() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != "" {
		headers["Authorization"] = "Bearer " + token
	} else if c.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.config.APIKey
	}
	return headers
}

// Chat sends a chat-completion request and returns the decoded response.
func (c *HTTPClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (ChatResponse, error) {
	if err := c.authenticate(ctx); err != nil {
		return ChatResponse{}, err
	}

	temperature := c.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := c.config.MaxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}
	stream := c.config.Stream
	if opts.Stream != nil {
		stream = *opts.Stream
	}

	var responseFormat map[string]any
	if opts.ResponseFormat == "json" {
		responseFormat = map[string]any{"type": "json_object"}
	}

	request := ChatRequest{
		Model:          c.config.Model,
		Messages:       messages,
		Temperature:    temperature,
		MaxTokens:      maxTokens,
		ResponseFormat: responseFormat,
	}
	if stream {
		streamVal := true
		request.Stream = &streamVal
	}

	var response ChatResponse
	url := joinURL(c.config.BaseURL, c.config.APIService)
	if err := c.postJSON(ctx, url, request, &response); err != nil {
		return ChatResponse{}, err
	}
	return response, nil
}

// Embedding requests vector embeddings for a batch of texts.
func (c *HTTPClient) Embedding(ctx context.Context, input []string) (EmbeddingResponse, error) {
	if err := c.authenticate(ctx); err != nil {
		return EmbeddingResponse{}, err
	}

	request := EmbeddingRequest{Model: c.config.Model, Input: input, EncodingFormat: "float"}
	var response EmbeddingResponse
	url := joinURL(c.config.BaseURL, c.config.EmbedService)
	if err := c.postJSON(ctx, url, request, &response); err != nil {
		return EmbeddingResponse{}, err
	}
	return response, nil
}

// ListModels lists models available to the configured account.
func (c *HTTPClient) ListModels(ctx context.Context) (ModelsResponse, error) {
	if err := c.authenticate(ctx); err != nil {
		return ModelsResponse{}, err
	}

	var response ModelsResponse
	url := joinURL(c.config.BaseURL, c.config.ModelsService)
	if err := c.getJSON(ctx, url, &response); err != nil {
		return ModelsResponse{}, err
	}
	return response, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return newError(ErrorKindDecode, "encode request payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return newError(ErrorKindConnection, "build request", err)
	}
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}

	return c.do(req, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return newError(ErrorKindConnection, "build request", err)
	}
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}

	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(ErrorKindDecode, "read response body", err)
	}
	if resp.StatusCode >= 300 {
		return newError(ErrorKindHTTP, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(data)), nil)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newError(ErrorKindDecode, "decode response body", err)
	}
	return nil
}

func classifyTransportError(err error) error {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(ErrorKindTimeout, "request timed out", err)
	}
	return newError(ErrorKindConnection, "request failed", err)
}
