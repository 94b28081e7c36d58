package repository

import "github.com/imsaurabhkr/EDU-RAG/internal/models"

// CorpusRepository 语料文件仓储接口
// 负责已入库文件元数据的存储和检索
type CorpusRepository interface {
	// Create 创建语料文件记录
	Create(file *models.CorpusFile) error

	// Update 更新语料文件记录
	Update(file *models.CorpusFile) error

	// GetByID 根据ID获取语料文件
	GetByID(id string) (*models.CorpusFile, error)

	// ListByCollection 列出指定集合下的语料文件，支持分页
	ListByCollection(collection string, offset, limit int) ([]*models.CorpusFile, int64, error)

	// Delete 删除语料文件记录
	Delete(id string) error

	// DeleteByCollection 删除集合下的所有语料文件记录
	DeleteByCollection(collection string) error
}
