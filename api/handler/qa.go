package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/api/middleware"
	"github.com/imsaurabhkr/EDU-RAG/api/model"
	"github.com/imsaurabhkr/EDU-RAG/internal/services"
)

// QAHandler 处理问答相关的API请求
type QAHandler struct {
	qaService   *services.QAService   // 问答服务
	chatService *services.ChatService // 问答历史服务，可选
	logger      *logrus.Logger        // 日志记录器
}

// NewQAHandler 创建新的问答处理器
func NewQAHandler(qaService *services.QAService, chatService *services.ChatService) *QAHandler {
	return &QAHandler{
		qaService:   qaService,
		chatService: chatService,
		logger:      middleware.GetLogger(),
	}
}

// AnswerQuestion 处理问答请求
// POST /api/qa
// 请求带corpus_path时先把语料写入集合再回答
func (h *QAHandler) AnswerQuestion(c *gin.Context) {
	var req model.QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"collection":  req.Collection,
		"question":    req.Question,
		"corpus_path": req.CorpusPath,
	}).Info("Answering question")

	ctx := c.Request.Context()
	result, err := h.qaService.AnswerWithCorpus(ctx, req.Collection, req.Question, req.CorpusPath)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	// 指定了会话时把这轮问答写入历史，失败不影响回答本身
	if req.SessionID != "" && h.chatService != nil {
		if err := h.chatService.RecordExchange(ctx, req.SessionID, req.Question, result); err != nil {
			h.logger.WithError(err).WithField("session_id", req.SessionID).
				Warn("Failed to record chat exchange")
		}
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.QAResponse{
		Collection: req.Collection,
		Question:   req.Question,
		Answer:     result.Answer,
		Sources:    model.ConvertToSourceInfo(result.Sources),
		Cached:     result.Cached,
	}))
}
