package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// OpenAI兼容接口的默认地址
	defaultOpenAIEndpoint = "https://api.openai.com/v1"

	// 默认嵌入模型
	defaultOpenAIModel = "text-embedding-3-small"
)

// openAIEmbedRequest OpenAI嵌入请求
type openAIEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// openAIEmbedResponse OpenAI嵌入响应
type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// OpenAIClient OpenAI兼容嵌入API客户端
// 也适用于暴露OpenAI兼容接口的其他提供商
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	model      string
	dimensions int
	batchSize  int
	httpClient *http.Client
}

// NewOpenAIClient 创建新的OpenAI嵌入客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "models/") {
		model = defaultOpenAIModel
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Embed 生成单条文本的向量表示
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	vectors, err := c.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量生成多条文本的向量表示
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		for _, text := range texts[start:end] {
			if text == "" {
				return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
			}
		}

		batch, err := c.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.model
}

// Dimensions 返回向量维度
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// request 发送一次嵌入请求，结果按输入顺序返回
func (c *OpenAIClient) request(ctx context.Context, input []string) ([][]float32, error) {
	reqBody := openAIEmbedRequest{
		Model: c.model,
		Input: input,
	}
	// text-embedding-3系列支持可配置输出维度
	if c.dimensions > 0 && strings.HasPrefix(c.model, "text-embedding-3") {
		reqBody.Dimensions = c.dimensions
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewEmbeddingError(ErrCodeTimeout, ErrMsgTimeout)
		}
		return nil, NewEmbeddingError(ErrCodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewEmbeddingError(ErrCodeNetworkError, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError(resp.StatusCode, string(body))
	}

	var parsed openAIEmbedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewEmbeddingError(ErrCodeServerError, "malformed response: "+err.Error())
	}
	if len(parsed.Data) != len(input) {
		return nil, NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("expected %d embeddings, got %d", len(input), len(parsed.Data)))
	}

	// 响应顺序依据index字段，避免依赖返回顺序
	vectors := make([][]float32, len(input))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(input) {
			return nil, NewEmbeddingError(ErrCodeServerError, "embedding index out of range")
		}
		if c.dimensions > 0 && len(d.Embedding) != c.dimensions {
			return nil, NewEmbeddingError(ErrCodeBadDimension,
				fmt.Sprintf("expected dimension %d, got %d", c.dimensions, len(d.Embedding)))
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// 在包初始化时注册OpenAI客户端
func init() {
	RegisterClient("openai", NewOpenAIClient)
}
