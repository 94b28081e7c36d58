package model

import "mime/multipart"

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// QARequest 问答请求
type QARequest struct {
	Collection string `json:"collection" binding:"required"`  // 目标集合名
	Question   string `json:"question" binding:"required"`    // 问题内容
	CorpusPath string `json:"corpus_path" binding:"omitempty"` // 可选的语料路径，回答前先入库
	SessionID  string `json:"session_id" binding:"omitempty"`  // 可选的会话ID，记录问答历史
}

// UploadRequest 语料上传请求
type UploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象
}

// CollectionRequest 集合操作请求
type CollectionRequest struct {
	Name string `uri:"name" binding:"required"` // 集合名
}

// SessionCreateRequest 创建会话请求
type SessionCreateRequest struct {
	Collection string `json:"collection" binding:"required"` // 绑定的集合名
	Title      string `json:"title" binding:"omitempty"`     // 会话标题
}

// SessionRequest 会话操作请求
type SessionRequest struct {
	ID string `uri:"id" binding:"required"` // 会话ID
}
