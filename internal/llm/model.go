package llm

import "time"

// Response 统一的生成响应结构
type Response struct {
	Text       string    // 生成的文本
	TokenCount int       // 使用的token数
	ModelName  string    // 使用的模型名称
	FinishTime time.Time // 完成时间
}

// RAGResponse 检索增强生成的响应
type RAGResponse struct {
	Answer  string            // 回答内容
	Sources []SourceReference // 引用来源
}

// SourceReference 回答引用的上下文来源
type SourceReference struct {
	ID      string // 分块ID
	Content string // 引用内容
}

// 常用模型名称
const (
	ModelGeminiPro   = "gemini-pro"       // Gemini Pro（文本生成）
	ModelGeminiFlash = "gemini-1.5-flash" // Gemini 1.5 Flash（更快，成本更低）
)
