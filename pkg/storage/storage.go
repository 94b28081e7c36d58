package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrFileNotFound 文件不存在错误
var ErrFileNotFound = errors.New("file not found")

// FileInfo 文件元数据结构
type FileInfo struct {
	ID       string // 文件唯一标识符
	Name     string // 原始文件名
	Size     int64  // 文件大小(字节)
	MimeType string // 文件MIME类型
	Path     string // 内部存储路径(实现相关)
}

// Storage 语料文件存储接口
// 保存上传的源文件，可以有不同实现(本地文件系统、MinIO等)
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(ctx context.Context, reader io.Reader, filename string) (FileInfo, error)

	// Get 获取文件内容
	Get(ctx context.Context, id string) (io.ReadCloser, error)

	// Delete 删除文件
	Delete(ctx context.Context, id string) error

	// List 列出所有文件
	List(ctx context.Context) ([]FileInfo, error)

	// Exists 检查文件是否存在
	Exists(ctx context.Context, id string) (bool, error)
}

// Config 存储配置
type Config struct {
	// 存储类型: "local", "minio"
	Type string
	// 本地存储路径 (仅本地存储使用)
	Path string
	// MinIO服务端点 (仅MinIO存储使用)
	Endpoint string
	// 访问密钥ID (仅MinIO存储使用)
	AccessKey string
	// 秘密访问密钥 (仅MinIO存储使用)
	SecretKey string
	// 是否使用SSL (仅MinIO存储使用)
	UseSSL bool
	// 存储桶名称 (仅MinIO存储使用)
	Bucket string
}

// NewStorage 根据配置创建存储实例
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "minio":
		return NewMinioStorage(cfg)
	case "local", "":
		return NewLocalStorage(cfg)
	default:
		return nil, errors.New("unsupported storage type: " + cfg.Type)
	}
}

// getMimeType 简单根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
