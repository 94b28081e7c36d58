package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CorpusFile 语料文件数据模型
// 记录已经切分并写入向量集合的源文件元数据
type CorpusFile struct {
	ID         string         `gorm:"primaryKey"`         // 文件ID，主键
	Collection string         `gorm:"not null;index"`     // 写入的集合名
	FileName   string         `gorm:"not null"`           // 文件名
	FileType   string         `gorm:"not null"`           // 文件类型
	FilePath   string         `gorm:"not null"`           // 存储路径
	FileSize   int64          `gorm:"not null"`           // 文件大小（字节）
	ChunkCount int            `gorm:"not null;default:0"` // 切分出的分块数量
	IndexedAt  time.Time      `gorm:"not null;index"`     // 入库时间
	UpdatedAt  time.Time      `gorm:"not null"`           // 更新时间
	Metadata   datatypes.JSON `gorm:"type:json"`          // 元数据，JSON格式
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (cf *CorpusFile) BeforeCreate(tx *gorm.DB) (err error) {
	if cf.IndexedAt.IsZero() {
		cf.IndexedAt = time.Now()
	}
	cf.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (cf *CorpusFile) BeforeUpdate(tx *gorm.DB) (err error) {
	cf.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (CorpusFile) TableName() string {
	return "corpus_files"
}
