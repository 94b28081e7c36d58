package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/imsaurabhkr/EDU-RAG/internal/database"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"gorm.io/gorm"
)

// ChatRepository 问答历史仓储接口
// 负责会话和消息的存储和检索
type ChatRepository interface {
	// CreateSession 创建问答会话
	CreateSession(session *models.ChatSession) error

	// GetSession 获取问答会话
	GetSession(id string) (*models.ChatSession, error)

	// ListSessions 列出会话，collection为空时不过滤集合
	ListSessions(collection string, offset, limit int) ([]*models.ChatSession, int64, error)

	// DeleteSession 删除会话及其所有消息
	DeleteSession(id string) error

	// CreateMessage 追加一条消息
	CreateMessage(message *models.ChatMessage) error

	// GetMessages 获取会话消息列表，按时间升序
	GetMessages(sessionID string, offset, limit int) ([]*models.ChatMessage, int64, error)

	// CountMessages 统计会话消息数量
	CountMessages(sessionID string) (int64, error)
}

// chatRepo 问答历史仓储实现
type chatRepo struct {
	db *gorm.DB // 数据库连接
}

// NewChatRepository 创建问答历史仓储实例
func NewChatRepository() ChatRepository {
	return &chatRepo{
		db: database.MustDB(),
	}
}

// NewChatRepositoryWithDB 使用指定的数据库连接创建问答历史仓储实例
func NewChatRepositoryWithDB(db *gorm.DB) ChatRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &chatRepo{db: db}
}

// CreateSession 创建问答会话
func (r *chatRepo) CreateSession(session *models.ChatSession) error {
	if session.Collection == "" {
		return errors.New("collection name cannot be empty")
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	return r.db.Create(session).Error
}

// GetSession 获取问答会话
func (r *chatRepo) GetSession(id string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions 列出会话，最近更新的排在前面
func (r *chatRepo) ListSessions(collection string, offset, limit int) ([]*models.ChatSession, int64, error) {
	var sessions []*models.ChatSession
	var total int64

	query := r.db.Model(&models.ChatSession{})
	if collection != "" {
		query = query.Where("collection = ?", collection)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// DeleteSession 删除会话及其所有消息
func (r *chatRepo) DeleteSession(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.ChatSession{}).Error
	})
}

// CreateMessage 追加一条消息并刷新会话的更新时间
func (r *chatRepo) CreateMessage(message *models.ChatMessage) error {
	if message.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	if err := r.db.Create(message).Error; err != nil {
		return err
	}

	return r.db.Model(&models.ChatSession{}).
		Where("id = ?", message.SessionID).
		Update("updated_at", time.Now()).Error
}

// GetMessages 获取会话消息列表
func (r *chatRepo) GetMessages(sessionID string, offset, limit int) ([]*models.ChatMessage, int64, error) {
	var messages []*models.ChatMessage
	var total int64

	// 先检查会话是否存在
	var exists int64
	err := r.db.Model(&models.ChatSession{}).
		Where("id = ?", sessionID).
		Count(&exists).Error
	if err != nil {
		return nil, 0, err
	}
	if exists == 0 {
		return nil, 0, fmt.Errorf("%w: %s", models.ErrSessionNotFound, sessionID)
	}

	err = r.db.Model(&models.ChatMessage{}).
		Where("session_id = ?", sessionID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// CountMessages 统计会话消息数量
func (r *chatRepo) CountMessages(sessionID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.ChatMessage{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error

	return count, err
}
