// Package client 调用 LexSim HTTP API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lexsim-api/internal/domain/entity"
	"lexsim-api/internal/interfaces/http/dto"
)

const (
	defaultTimeout = 3 * time.Minute
	// 错误响应体只读取这么多字节
	maxErrorBody = 64 * 1024
)

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	Status     int
	Message    string
	ErrorCode  string
	TraceID    string
	RetryAfter int
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client LexSim API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
	requestID  func() string
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestID 为每个请求生成 X-Request-ID
func WithRequestID(gen func() string) Option {
	return func(c *Client) { c.requestID = gen }
}

// New 创建客户端，baseURL 形如 http://localhost:8000
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestFromInput 把已校验的输入转换为规范形态请求体
func RequestFromInput(in entity.SimulationInput) dto.SimulateRequest {
	subject := string(in.Subject)
	level := string(in.Level)
	req := dto.SimulateRequest{
		Contexto:          &in.Context,
		Materia:           &subject,
		Nivel:             &level,
		ObjetivoDidactico: &in.Objective,
		DuracionMin:       &in.DurationMinutes,
		Restricciones:     in.Constraints,
	}
	if in.Jurisdiction != "" {
		req.Jurisdiccion = &in.Jurisdiction
	}
	return req
}

// Simulate 调用 POST /api/simulate，返回原始响应体
func (c *Client) Simulate(ctx context.Context, req dto.SimulateRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/api/simulate", payload)
}

// Health 调用 GET /health
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/health")
}

// Ready 调用 GET /ready；未就绪时返回 *APIError，但仍附带检查详情
func (c *Client) Ready(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/ready")
}

func (c *Client) getJSON(ctx context.Context, path string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)

	var out map[string]any
	if len(body) > 0 {
		if jerr := json.Unmarshal(body, &out); jerr != nil && err == nil {
			return nil, fmt.Errorf("decode %s: %w", path, jerr)
		}
	}
	return out, err
}

// do 发送请求；非 2xx 时返回 *APIError 与响应体
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestID != nil {
		req.Header.Set("X-Request-ID", c.requestID())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return data, nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return data, newAPIError(resp, data)
}

func newAPIError(resp *http.Response, data []byte) *APIError {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		apiErr.RetryAfter = v
	}

	var body dto.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		if body.Error != nil {
			apiErr.ErrorCode = body.Error.ErrorCode
		}
		apiErr.TraceID = body.TraceID
	}
	return apiErr
}
