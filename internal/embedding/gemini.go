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
	// Google生成式AI API的默认地址
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

	// 默认嵌入模型
	defaultGeminiModel = "models/embedding-001"
)

// geminiContent 请求中的文本内容
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// geminiEmbedRequest 单条嵌入请求
type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

// geminiBatchRequest 批量嵌入请求
type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

// geminiEmbedding 响应中的向量
type geminiEmbedding struct {
	Values []float32 `json:"values"`
}

// geminiEmbedResponse 单条嵌入响应
type geminiEmbedResponse struct {
	Embedding geminiEmbedding `json:"embedding"`
}

// geminiBatchResponse 批量嵌入响应
type geminiBatchResponse struct {
	Embeddings []geminiEmbedding `json:"embeddings"`
}

// GeminiClient Google Gemini嵌入API客户端
type GeminiClient struct {
	apiKey     string       // API密钥
	endpoint   string       // API基础地址
	model      string       // 模型名称（形如 models/embedding-001）
	dimensions int          // 向量维度
	batchSize  int          // 单次批量请求的最大文本数
	httpClient *http.Client // HTTP客户端
}

// NewGeminiClient 创建新的Gemini嵌入客户端
func NewGeminiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	// API要求模型名带models/前缀
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Embed 生成单条文本的向量表示
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	reqBody := geminiEmbedRequest{
		Model:   c.model,
		Content: geminiContent{Parts: []geminiPart{{Text: text}}},
	}

	url := fmt.Sprintf("%s/%s:embedContent?key=%s", c.endpoint, c.model, c.apiKey)
	var resp geminiEmbedResponse
	if err := c.post(ctx, url, reqBody, &resp); err != nil {
		return nil, err
	}

	if err := c.checkDimension(resp.Embedding.Values); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch 批量生成多条文本的向量表示
// 超出批大小的输入会被切分为多次请求，结果按输入顺序返回
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		reqBody := geminiBatchRequest{}
		for _, text := range texts[start:end] {
			if text == "" {
				return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
			}
			reqBody.Requests = append(reqBody.Requests, geminiEmbedRequest{
				Model:   c.model,
				Content: geminiContent{Parts: []geminiPart{{Text: text}}},
			})
		}

		url := fmt.Sprintf("%s/%s:batchEmbedContents?key=%s", c.endpoint, c.model, c.apiKey)
		var resp geminiBatchResponse
		if err := c.post(ctx, url, reqBody, &resp); err != nil {
			return nil, err
		}

		if len(resp.Embeddings) != end-start {
			return nil, NewEmbeddingError(ErrCodeServerError,
				fmt.Sprintf("expected %d embeddings, got %d", end-start, len(resp.Embeddings)))
		}

		for _, e := range resp.Embeddings {
			if err := c.checkDimension(e.Values); err != nil {
				return nil, err
			}
			vectors = append(vectors, e.Values)
		}
	}

	return vectors, nil
}

// Name 返回模型名称
func (c *GeminiClient) Name() string {
	return c.model
}

// Dimensions 返回向量维度
func (c *GeminiClient) Dimensions() int {
	return c.dimensions
}

// post 发送JSON请求并解析响应
func (c *GeminiClient) post(ctx context.Context, url string, in interface{}, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return NewEmbeddingError(ErrCodeInvalidRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return NewEmbeddingError(ErrCodeTimeout, ErrMsgTimeout)
		}
		return NewEmbeddingError(ErrCodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewEmbeddingError(ErrCodeNetworkError, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return statusToError(resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return NewEmbeddingError(ErrCodeServerError, "malformed response: "+err.Error())
	}
	return nil
}

// checkDimension 校验返回向量的维度
// 入库和查询的维度不一致属于致命的配置错误
func (c *GeminiClient) checkDimension(vector []float32) error {
	if len(vector) == 0 {
		return NewEmbeddingError(ErrCodeServerError, "empty embedding in response")
	}
	if c.dimensions > 0 && len(vector) != c.dimensions {
		return NewEmbeddingError(ErrCodeBadDimension,
			fmt.Sprintf("expected dimension %d, got %d", c.dimensions, len(vector)))
	}
	return nil
}

// 在包初始化时注册Gemini客户端
func init() {
	RegisterClient("gemini", NewGeminiClient)
}
