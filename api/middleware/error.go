package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/api/model"
	"github.com/imsaurabhkr/EDU-RAG/internal/document"
	"github.com/imsaurabhkr/EDU-RAG/internal/embedding"
	"github.com/imsaurabhkr/EDU-RAG/internal/llm"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/vectordb"
	"github.com/imsaurabhkr/EDU-RAG/pkg/storage"
)

// 应用中的错误类型常量
const (
	ErrorTypeValidation = "VALIDATION_ERROR" // 输入验证错误
	ErrorTypeNotFound   = "NOT_FOUND_ERROR"  // 资源不存在错误
	ErrorTypeProvider   = "PROVIDER_ERROR"   // 上游模型服务错误
	ErrorTypeInternal   = "INTERNAL_ERROR"   // 内部服务器错误
)

// AppError 应用错误结构体
type AppError struct {
	Type    string // 错误类型
	Message string // 错误消息
	Details string // 详细错误信息
	Code    int    // HTTP状态码
}

// Error 实现error接口
func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError 创建输入验证错误
func NewValidationError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusBadRequest,
	}
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) AppError {
	return AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewInternalError 创建内部服务器错误
func NewInternalError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusInternalServerError,
	}
}

// classifyError 把领域错误映射到HTTP状态码
// 输入问题归为400，找不到的资源归为404，
// 上游模型服务的失败归为502，其余都是500
func classifyError(err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, document.ErrUnsupportedType),
		errors.Is(err, document.ErrEmptyDocument),
		errors.Is(err, document.ErrInvalidSplitConfig),
		errors.Is(err, vectordb.ErrInvalidDimension),
		errors.Is(err, vectordb.ErrEmptyVector):
		return NewValidationError(err.Error())

	case errors.Is(err, models.ErrCorpusFileNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, storage.ErrFileNotFound):
		return NewNotFoundError(err.Error())
	}

	var embedErr embedding.EmbeddingError
	if errors.As(err, &embedErr) {
		return AppError{
			Type:    ErrorTypeProvider,
			Message: "embedding provider error: " + embedErr.Message,
			Code:    http.StatusBadGateway,
		}
	}

	var llmErr llm.LLMError
	if errors.As(err, &llmErr) {
		return AppError{
			Type:    ErrorTypeProvider,
			Message: "model provider error: " + llmErr.Message,
			Code:    http.StatusBadGateway,
		}
	}

	return NewInternalError("Internal server error", err.Error())
}

// ErrorMiddleware 统一错误处理中间件
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 捕获panic
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"error": err,
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered in API request")

				errResp := model.NewErrorResponse(
					http.StatusInternalServerError,
					"An unexpected error occurred",
				)
				if gin.Mode() == gin.DebugMode {
					errResp.Message = fmt.Sprintf("Panic: %v", err)
				}
				if traceID, exists := c.Get("TraceID"); exists {
					errResp.TraceID = traceID.(string)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		traceID := ""
		if traceIDValue, exists := c.Get("TraceID"); exists {
			traceID = traceIDValue.(string)
		}

		appErr := classifyError(err)
		log.WithFields(logrus.Fields{
			"error_type": appErr.Type,
			"trace_id":   traceID,
			"path":       c.Request.URL.Path,
		}).Error(appErr.Message)

		errResp := model.NewErrorResponse(appErr.Code, appErr.Message)
		errResp.TraceID = traceID

		c.AbortWithStatusJSON(appErr.Code, errResp)
	}
}

// HandleError 在处理器中使用的错误处理辅助函数
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}
