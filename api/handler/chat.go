package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/api/middleware"
	"github.com/imsaurabhkr/EDU-RAG/api/model"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/services"
)

// ChatHandler 处理问答会话相关的API请求
type ChatHandler struct {
	chatService *services.ChatService // 会话服务
	logger      *logrus.Logger        // 日志记录器
}

// NewChatHandler 创建新的会话处理器
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      middleware.GetLogger(),
	}
}

// CreateSession 创建问答会话
// POST /api/sessions
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req model.SessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", err.Error()))
		return
	}

	session, err := h.chatService.CreateSession(c.Request.Context(), req.Collection, req.Title)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(convertSession(session)))
}

// GetSession 查询单个会话
// GET /api/sessions/:id
func (h *ChatHandler) GetSession(c *gin.Context) {
	var req model.SessionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid session id", err.Error()))
		return
	}

	session, err := h.chatService.GetSession(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(convertSession(session)))
}

// ListSessions 按集合分页查询会话列表
// GET /api/sessions?collection=xxx&page=1&page_size=10
func (h *ChatHandler) ListSessions(c *gin.Context) {
	var page model.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid pagination parameters", err.Error()))
		return
	}
	collection := c.Query("collection")

	offset := (page.GetPage() - 1) * page.GetPageSize()
	sessions, total, err := h.chatService.ListSessions(c.Request.Context(), collection, offset, page.GetPageSize())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	infos := make([]model.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, convertSession(s))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionListResponse{
		Total:    total,
		Page:     page.GetPage(),
		PageSize: page.GetPageSize(),
		Sessions: infos,
	}))
}

// DeleteSession 删除会话及其全部消息
// DELETE /api/sessions/:id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	var req model.SessionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid session id", err.Error()))
		return
	}

	if err := h.chatService.DeleteSession(c.Request.Context(), req.ID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"success": true}))
}

// GetMessages 分页查询会话内的消息
// GET /api/sessions/:id/messages?page=1&page_size=10
func (h *ChatHandler) GetMessages(c *gin.Context) {
	var req model.SessionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid session id", err.Error()))
		return
	}
	var page model.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid pagination parameters", err.Error()))
		return
	}

	offset := (page.GetPage() - 1) * page.GetPageSize()
	messages, total, err := h.chatService.GetMessages(c.Request.Context(), req.ID, offset, page.GetPageSize())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	infos := make([]model.MessageInfo, 0, len(messages))
	for _, m := range messages {
		infos = append(infos, convertMessage(m))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.MessageListResponse{
		Total:    total,
		Messages: infos,
	}))
}

func convertSession(s *models.ChatSession) model.SessionInfo {
	return model.SessionInfo{
		ID:         s.ID,
		Collection: s.Collection,
		Title:      s.Title,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func convertMessage(m *models.ChatMessage) model.MessageInfo {
	info := model.MessageInfo{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if len(m.Sources) > 0 {
		var sources []models.Source
		if err := json.Unmarshal(m.Sources, &sources); err == nil {
			info.Sources = model.ConvertToSourceInfo(sources)
		}
	}
	return info
}
