package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// GroundingPolicy 回答的依据策略
// 决定上下文不足时模型是否允许使用自身知识作答
type GroundingPolicy string

const (
	// GroundingStrict 严格策略：只依据检索到的上下文作答，
	// 上下文中没有答案时必须明确说明，不允许编造
	GroundingStrict GroundingPolicy = "strict"
	// GroundingLenient 宽松策略：上下文不足时允许回退到模型自身的知识
	GroundingLenient GroundingPolicy = "lenient"
)

// NoContextAnswer 严格策略下上下文中找不到答案时的固定回答
const NoContextAnswer = "answer is not available in the context"

// StrictRAGTemplate 严格策略的提示词模板
// 包含变量：
// {{.Question}} - 用户问题
// {{.Context}} - 检索的上下文
const StrictRAGTemplate = `Answer the question as detailed as possible from the provided context,
make sure to provide all the details. If the answer is not in
the provided context just say, "answer is not available in the context",
don't provide a wrong answer.

Context:
{{.Context}}

Question: {{.Question}}

Answer:`

// LenientRAGTemplate 宽松策略的提示词模板
// 上下文不足时允许模型使用自身知识，但要求注明
const LenientRAGTemplate = `Answer the question as detailed as possible, preferring the provided context.
If the context does not contain the answer, you may answer from your own
general knowledge, but mention that the answer is not from the provided material.

Context:
{{.Context}}

Question: {{.Question}}

Answer:`

// RAGConfig 检索增强生成配置
type RAGConfig struct {
	// 依据策略
	Policy GroundingPolicy
	// 提示词模板，为空时根据策略选择
	Template string
	// 最大Token数
	MaxTokens int
	// 温度参数
	Temperature float32
	// 超时时间
	Timeout time.Duration
	// 是否带上引用来源
	IncludeSources bool
}

// DefaultRAGConfig 默认RAG配置
// 默认使用严格策略，与源教材问答的场景匹配
func DefaultRAGConfig() *RAGConfig {
	return &RAGConfig{
		Policy:         GroundingStrict,
		MaxTokens:      2048,
		Temperature:    0.3,
		Timeout:        30 * time.Second,
		IncludeSources: true,
	}
}

// RAGOption RAG配置选项函数类型
type RAGOption func(*RAGConfig)

// WithPolicy 设置依据策略
func WithPolicy(policy GroundingPolicy) RAGOption {
	return func(c *RAGConfig) {
		c.Policy = policy
	}
}

// WithTemplate 设置自定义提示词模板
func WithTemplate(template string) RAGOption {
	return func(c *RAGConfig) {
		c.Template = template
	}
}

// WithRAGMaxTokens 设置最大Token数
func WithRAGMaxTokens(tokens int) RAGOption {
	return func(c *RAGConfig) {
		c.MaxTokens = tokens
	}
}

// WithRAGTemperature 设置温度参数
func WithRAGTemperature(temp float32) RAGOption {
	return func(c *RAGConfig) {
		c.Temperature = temp
	}
}

// WithRAGTimeout 设置请求超时时间
func WithRAGTimeout(timeout time.Duration) RAGOption {
	return func(c *RAGConfig) {
		c.Timeout = timeout
	}
}

// WithSources 设置是否包含引用来源
func WithSources(include bool) RAGOption {
	return func(c *RAGConfig) {
		c.IncludeSources = include
	}
}

// RAGService 实现检索增强生成服务
// 负责把检索到的段落和用户问题组装成提示词并调用大模型
type RAGService struct {
	Client Client       // 大模型客户端
	config *RAGConfig   // 配置
	mu     sync.RWMutex // 配置互斥锁
}

// NewRAG 创建新的检索增强生成服务
func NewRAG(client Client, opts ...RAGOption) *RAGService {
	cfg := DefaultRAGConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &RAGService{
		Client: client,
		config: cfg,
	}
}

// Policy 返回当前的依据策略
func (r *RAGService) Policy() GroundingPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Policy
}

// formatContext 将检索到的段落格式化为上下文块
// 段落内的换行折叠为空格，避免破坏提示词结构
func formatContext(passages []string) string {
	var b strings.Builder
	for i, passage := range passages {
		flattened := strings.Join(strings.Fields(passage), " ")
		b.WriteString(fmt.Sprintf("[%d] %s\n\n", i+1, flattened))
	}
	return b.String()
}

// BuildPrompt 组装增强提示词
// 空段落列表也会产生合法的提示词，配合严格策略得到固定的"无答案"回复
func (r *RAGService) BuildPrompt(question string, passages []string) string {
	r.mu.RLock()
	template := r.config.Template
	policy := r.config.Policy
	r.mu.RUnlock()

	if template == "" {
		if policy == GroundingLenient {
			template = LenientRAGTemplate
		} else {
			template = StrictRAGTemplate
		}
	}

	// 先填问题槽位再填上下文，检索段落里出现的槽位文本不会被二次替换
	prompt := template
	prompt = strings.ReplaceAll(prompt, "{{.Question}}", question)
	prompt = strings.ReplaceAll(prompt, "{{.Context}}", formatContext(passages))
	return prompt
}

// Answer 根据上下文段落和问题生成回答
func (r *RAGService) Answer(ctx context.Context, question string, passages []string) (*RAGResponse, error) {
	if question == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, "question cannot be empty")
	}

	r.mu.RLock()
	cfg := *r.config
	r.mu.RUnlock()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	prompt := r.BuildPrompt(question, passages)

	response, err := r.Client.Generate(
		ctxWithTimeout,
		prompt,
		WithGenerateMaxTokens(cfg.MaxTokens),
		WithGenerateTemperature(cfg.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	ragResponse := &RAGResponse{
		Answer: response.Text,
	}

	if cfg.IncludeSources && len(passages) > 0 {
		sources := make([]SourceReference, len(passages))
		for i, passage := range passages {
			sources[i] = SourceReference{
				ID:      fmt.Sprintf("src-%d", i+1),
				Content: passage,
			}
		}
		ragResponse.Sources = sources
	}

	return ragResponse, nil
}

// SetPolicy 切换依据策略
func (r *RAGService) SetPolicy(policy GroundingPolicy) *RAGService {
	r.mu.Lock()
	r.config.Policy = policy
	r.mu.Unlock()
	return r
}
