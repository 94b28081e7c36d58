package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Google生成式AI API的默认地址
const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// geminiPart 内容片段
type geminiPart struct {
	Text string `json:"text"`
}

// geminiContent 请求/响应中的内容结构
type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

// geminiGenerationConfig 生成参数
type geminiGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// geminiGenerateRequest 生成请求
type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// geminiGenerateResponse 生成响应
type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// GeminiClient Google Gemini生成模型客户端
type GeminiClient struct {
	apiKey     string       // API密钥
	endpoint   string       // API基础地址
	model      string       // 模型名称
	config     *Config      // 客户端配置
	httpClient *http.Client // HTTP客户端
}

// NewGeminiClient 创建新的Gemini客户端
func NewGeminiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, "Gemini API key is required")
	}

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}

	model := cfg.Model
	if model == "" {
		model = ModelGeminiPro
	}

	return &GeminiClient{
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Generate 根据提示词生成回答
func (c *GeminiClient) Generate(ctx context.Context, prompt string, options ...GenerateOption) (*Response, error) {
	if prompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, "prompt cannot be empty")
	}

	// 合并单次请求选项和客户端默认配置
	opts := &GenerateOptions{}
	for _, opt := range options {
		opt(opts)
	}
	temperature := c.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	topP := c.config.TopP
	if opts.TopP != nil {
		topP = *opts.TopP
	}
	maxTokens := c.config.MaxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}

	reqBody := geminiGenerateRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}, Role: "user"},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     &temperature,
			TopP:            &topP,
			MaxOutputTokens: &maxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, err.Error())
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NewLLMError(ErrCodeTimeout, "request timed out")
		}
		return nil, NewLLMError(ErrCodeNetworkError, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrCodeNetworkError, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError(resp.StatusCode, string(body))
	}

	var parsed geminiGenerateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, NewLLMError(ErrCodeServerError, "malformed response: "+err.Error())
	}
	if len(parsed.Candidates) == 0 {
		// 无候选通常意味着内容被安全策略拦截
		return nil, NewLLMError(ErrCodeContentFilter, "no candidates in response")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return &Response{
		Text:       text.String(),
		TokenCount: parsed.UsageMetadata.TotalTokenCount,
		ModelName:  c.model,
		FinishTime: time.Now(),
	}, nil
}

// Name 返回模型名称
func (c *GeminiClient) Name() string {
	return c.model
}

// 在包初始化时注册Gemini客户端
func init() {
	RegisterClient("gemini", NewGeminiClient)
}
