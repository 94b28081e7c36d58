package repository

import (
	"errors"
	"fmt"

	"github.com/imsaurabhkr/EDU-RAG/internal/database"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"gorm.io/gorm"
)

// corpusRepository 语料文件仓储实现
type corpusRepository struct {
	db *gorm.DB // 数据库连接
}

// NewCorpusRepository 创建语料文件仓储实例
func NewCorpusRepository() CorpusRepository {
	return &corpusRepository{
		db: database.MustDB(),
	}
}

// NewCorpusRepositoryWithDB 使用指定的数据库连接创建语料文件仓储实例
func NewCorpusRepositoryWithDB(db *gorm.DB) CorpusRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &corpusRepository{db: db}
}

// Create 创建语料文件记录
func (r *corpusRepository) Create(file *models.CorpusFile) error {
	if file.ID == "" {
		return errors.New("corpus file ID cannot be empty")
	}
	if file.Collection == "" {
		return errors.New("collection name cannot be empty")
	}

	return r.db.Create(file).Error
}

// Update 更新语料文件记录
func (r *corpusRepository) Update(file *models.CorpusFile) error {
	if file.ID == "" {
		return errors.New("corpus file ID cannot be empty")
	}

	return r.db.Save(file).Error
}

// GetByID 根据ID获取语料文件
func (r *corpusRepository) GetByID(id string) (*models.CorpusFile, error) {
	var file models.CorpusFile
	err := r.db.Where("id = ?", id).First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrCorpusFileNotFound, id)
		}
		return nil, err
	}
	return &file, nil
}

// ListByCollection 列出指定集合下的语料文件，支持分页
func (r *corpusRepository) ListByCollection(collection string, offset, limit int) ([]*models.CorpusFile, int64, error) {
	var files []*models.CorpusFile
	var total int64

	query := r.db.Model(&models.CorpusFile{}).Where("collection = ?", collection)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("indexed_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

// Delete 删除语料文件记录
func (r *corpusRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.CorpusFile{}).Error
}

// DeleteByCollection 删除集合下的所有语料文件记录
// 和向量集合的删除一起使用，保持元数据与索引一致
func (r *corpusRepository) DeleteByCollection(collection string) error {
	return r.db.Where("collection = ?", collection).Delete(&models.CorpusFile{}).Error
}
