package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// ChatSession 问答会话模型
// 每个会话绑定一个文档集合，记录该集合上的问答历史
type ChatSession struct {
	ID         string         `gorm:"primaryKey"`        // 会话ID，主键
	Collection string         `gorm:"not null;index"`    // 绑定的集合名
	Title      string         `gorm:"not null"`          // 会话标题
	CreatedAt  time.Time      `gorm:"not null"`          // 创建时间
	UpdatedAt  time.Time      `gorm:"not null"`          // 更新时间
	Metadata   datatypes.JSON `gorm:"type:json"`         // 元数据，JSON格式
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (cs *ChatSession) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = now
	}
	cs.UpdatedAt = now
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (cs *ChatSession) BeforeUpdate(tx *gorm.DB) (err error) {
	cs.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage 问答消息模型
// 用户提问和模型回答各占一条记录
type ChatMessage struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"`  // 主键ID
	SessionID string         `gorm:"not null;index"`            // 所属会话ID
	Role      MessageRole    `gorm:"not null;type:varchar(20)"` // 消息角色
	Content   string         `gorm:"type:text;not null"`        // 消息内容
	CreatedAt time.Time      `gorm:"not null"`                  // 创建时间
	Sources   datatypes.JSON `gorm:"type:json"`                 // 回答引用的分块
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (cm *ChatMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if cm.CreatedAt.IsZero() {
		cm.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Source 回答引用的检索分块
type Source struct {
	ChunkID  string  `json:"chunk_id"`        // 分块ID
	FileName string  `json:"file_name"`       // 来源文件名
	Position int     `json:"position"`        // 分块在文件中的序号
	Text     string  `json:"text"`            // 分块文本
	Score    float32 `json:"score,omitempty"` // 相似度得分
}
