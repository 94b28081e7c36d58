package model

import (
	"time"

	"github.com/imsaurabhkr/EDU-RAG/internal/models"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// SourceInfo 回答引用的来源信息
type SourceInfo struct {
	ChunkID  string  `json:"chunk_id"`        // 分块ID
	FileName string  `json:"filename"`        // 文件名
	Position int     `json:"position"`        // 分块序号
	Text     string  `json:"text"`            // 分块文本
	Score    float32 `json:"score,omitempty"` // 相似度得分
}

// QAResponse 问答响应
type QAResponse struct {
	Collection string       `json:"collection"` // 集合名
	Question   string       `json:"question"`   // 用户问题
	Answer     string       `json:"answer"`     // 生成的回答
	Sources    []SourceInfo `json:"sources"`    // 来源信息
	Cached     bool         `json:"cached"`     // 是否命中缓存
}

// ConvertToSourceInfo 将服务层来源转换为响应结构
func ConvertToSourceInfo(sources []models.Source) []SourceInfo {
	if len(sources) == 0 {
		return []SourceInfo{}
	}

	infos := make([]SourceInfo, len(sources))
	for i, src := range sources {
		infos[i] = SourceInfo{
			ChunkID:  src.ChunkID,
			FileName: src.FileName,
			Position: src.Position,
			Text:     src.Text,
			Score:    src.Score,
		}
	}
	return infos
}

// UploadResponse 语料上传响应
type UploadResponse struct {
	FileID     string `json:"file_id"`     // 文件ID
	FileName   string `json:"filename"`    // 文件名
	Collection string `json:"collection"`  // 写入的集合
	ChunkCount int    `json:"chunk_count"` // 切分出的分块数量
}

// CorpusFileInfo 语料文件信息
type CorpusFileInfo struct {
	FileID     string    `json:"file_id"`     // 文件ID
	FileName   string    `json:"filename"`    // 文件名
	FileType   string    `json:"file_type"`   // 文件类型
	ChunkCount int       `json:"chunk_count"` // 分块数量
	IndexedAt  time.Time `json:"indexed_at"`  // 入库时间
}

// CollectionResponse 集合详情响应
type CollectionResponse struct {
	Name       string           `json:"name"`        // 集合名
	ChunkCount int              `json:"chunk_count"` // 分块总数
	Files      []CorpusFileInfo `json:"files"`       // 集合内的语料文件
}

// CollectionDeleteResponse 集合删除响应
type CollectionDeleteResponse struct {
	Success bool   `json:"success"` // 是否成功
	Name    string `json:"name"`    // 集合名
}

// SessionInfo 会话信息
type SessionInfo struct {
	ID         string    `json:"id"`         // 会话ID
	Collection string    `json:"collection"` // 绑定的集合
	Title      string    `json:"title"`      // 标题
	CreatedAt  time.Time `json:"created_at"` // 创建时间
	UpdatedAt  time.Time `json:"updated_at"` // 更新时间
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	Total    int64         `json:"total"`     // 总数量
	Page     int           `json:"page"`      // 当前页码
	PageSize int           `json:"page_size"` // 每页大小
	Sessions []SessionInfo `json:"sessions"`  // 会话列表
}

// MessageInfo 消息信息
type MessageInfo struct {
	ID        uint         `json:"id"`                // 消息ID
	Role      string       `json:"role"`              // 消息角色
	Content   string       `json:"content"`           // 消息内容
	Sources   []SourceInfo `json:"sources,omitempty"` // 引用来源
	CreatedAt time.Time    `json:"created_at"`        // 创建时间
}

// MessageListResponse 消息列表响应
type MessageListResponse struct {
	Total    int64         `json:"total"`    // 总数量
	Messages []MessageInfo `json:"messages"` // 消息列表
}
