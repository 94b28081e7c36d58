package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/repository"
)

// ChatService 问答历史服务
// 负责管理会话和消息的业务逻辑
type ChatService struct {
	repo   repository.ChatRepository // 问答历史仓储接口
	logger *logrus.Logger            // 日志记录器
}

// ChatOption 历史服务配置选项
type ChatOption func(*ChatService)

// NewChatService 创建问答历史服务实例
func NewChatService(repo repository.ChatRepository, opts ...ChatOption) *ChatService {
	service := &ChatService{
		repo:   repo,
		logger: logrus.New(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// WithChatLogger 设置日志记录器
func WithChatLogger(logger *logrus.Logger) ChatOption {
	return func(s *ChatService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// CreateSession 创建新的问答会话
func (s *ChatService) CreateSession(ctx context.Context, collection string, title string) (*models.ChatSession, error) {
	if collection == "" {
		return nil, errors.New("collection name cannot be empty")
	}
	if title == "" {
		title = "New session " + time.Now().Format("2006-01-02 15:04:05")
	}

	session := &models.ChatSession{
		Collection: collection,
		Title:      title,
	}

	if err := s.repo.CreateSession(session); err != nil {
		s.logger.WithError(err).Error("Failed to create chat session")
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	s.logger.WithField("session_id", session.ID).Info("Chat session created")
	return session, nil
}

// GetSession 获取会话详情
func (s *ChatService) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	if sessionID == "" {
		return nil, errors.New("session ID cannot be empty")
	}

	session, err := s.repo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}

	return session, nil
}

// ListSessions 列出会话，collection为空时列出全部
func (s *ChatService) ListSessions(ctx context.Context, collection string, offset, limit int) ([]*models.ChatSession, int64, error) {
	sessions, total, err := s.repo.ListSessions(collection, offset, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list chat sessions")
		return nil, 0, fmt.Errorf("failed to list chat sessions: %w", err)
	}

	return sessions, total, nil
}

// DeleteSession 删除会话及其所有消息
func (s *ChatService) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	if err := s.repo.DeleteSession(sessionID); err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to delete chat session")
		return fmt.Errorf("failed to delete chat session: %w", err)
	}

	s.logger.WithField("session_id", sessionID).Info("Chat session deleted")
	return nil
}

// RecordExchange 把一轮问答写入会话历史
// 用户提问和模型回答各占一条消息，回答消息带引用来源
func (s *ChatService) RecordExchange(ctx context.Context, sessionID string, question string, result *QAResult) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}
	if question == "" || result == nil {
		return errors.New("question and answer cannot be empty")
	}

	if err := s.repo.CreateMessage(&models.ChatMessage{
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   question,
	}); err != nil {
		return fmt.Errorf("failed to record question: %w", err)
	}

	answerMsg := &models.ChatMessage{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   result.Answer,
	}
	if len(result.Sources) > 0 {
		sourcesJSON, err := json.Marshal(result.Sources)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to marshal answer sources")
		} else {
			answerMsg.Sources = sourcesJSON
		}
	}

	if err := s.repo.CreateMessage(answerMsg); err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}

	return nil
}

// GetMessages 获取会话消息列表
func (s *ChatService) GetMessages(ctx context.Context, sessionID string, offset, limit int) ([]*models.ChatMessage, int64, error) {
	if sessionID == "" {
		return nil, 0, errors.New("session ID cannot be empty")
	}

	messages, total, err := s.repo.GetMessages(sessionID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get chat messages: %w", err)
	}

	return messages, total, nil
}
