package llm

import "fmt"

// LLMError 大模型调用错误类型
type LLMError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e LLMError) Error() string {
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyPrompt    = 1007 // 提示词为空
	ErrCodeContentFilter  = 1008 // 内容被安全策略拦截
)

// NewLLMError 创建新的大模型错误
func NewLLMError(code int, message string) LLMError {
	return LLMError{
		Code:    code,
		Message: message,
	}
}

// statusToError 将HTTP状态码转换为大模型错误
func statusToError(status int, body string) LLMError {
	switch {
	case status == 401 || status == 403:
		return NewLLMError(ErrCodeInvalidAPIKey, "invalid API key")
	case status == 429:
		return NewLLMError(ErrCodeRateLimited, "too many requests, rate limit exceeded")
	case status >= 500:
		return NewLLMError(ErrCodeServerError, "server error: "+body)
	default:
		return NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("unexpected status %d: %s", status, body))
	}
}
