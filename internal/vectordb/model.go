package vectordb

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// 常用错误定义
var (
	ErrEmptyVector      = errors.New("empty vector")
	ErrInvalidID        = errors.New("invalid chunk ID")
	ErrDuplicateID      = errors.New("duplicate chunk ID in collection")
	ErrInvalidDimension = errors.New("vector dimension mismatch")
	ErrStoreClosed      = errors.New("vector store is closed")
)

// Chunk 存储在集合中的文档分块
// 每个分块携带其向量表示和溯源信息
type Chunk struct {
	ID        string    `json:"id" bson:"chunk_id"`                  // 集合内唯一标识符
	FileID    string    `json:"file_id" bson:"file_id"`              // 所属摄取批次ID
	FileName  string    `json:"file_name" bson:"file_name"`          // 源文件名
	Position  int       `json:"position" bson:"position"`            // 在源文档中的分块序号
	Offset    int       `json:"offset" bson:"offset"`                // 在源文本中的起始位置
	Text      string    `json:"text" bson:"text"`                    // 原始文本内容
	Vector    []float32 `json:"vector" bson:"vector"`                // 向量表示
	CreatedAt time.Time `json:"created_at" bson:"created_at"`        // 创建时间
	Seq       int64     `json:"seq" bson:"seq"`                      // 集合内的插入序号，用于确定性的并列打破
}

// DistanceType 向量距离计算方法
type DistanceType string

const (
	// Cosine 余弦相似度
	Cosine DistanceType = "cosine"
	// DotProduct 点积
	DotProduct DistanceType = "dot"
	// Euclidean 欧几里得距离
	Euclidean DistanceType = "l2"
)

// SearchResult 搜索结果
type SearchResult struct {
	Chunk    Chunk   // 分块内容
	Score    float32 // 相似度得分（0-1，越高越相似）
	Distance float32 // 计算的距离
}

// Store 向量存储接口
// 管理多个命名集合，每个集合是一组(分块, 向量)对
type Store interface {
	// GetOrCreate 获取或创建命名集合，幂等操作，
	// 已存在的集合不会被覆盖，已有分块原样保留
	GetOrCreate(ctx context.Context, name string) (*Collection, error)

	// Add 向集合追加分块，分块ID在集合内必须唯一
	Add(ctx context.Context, collection string, chunks []Chunk) error

	// Query 在集合内做相似度搜索，返回按相似度降序的前limit个结果，
	// 从未写入过的集合返回空结果而不是错误
	Query(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error)

	// Count 返回集合内的分块总数
	Count(ctx context.Context, collection string) (int, error)

	// DeleteCollection 删除整个集合，集合不存在时不报错
	// 这是显式的管理操作，查询管线不会自动触发
	DeleteCollection(ctx context.Context, name string) error

	// Dimensions 返回存储的向量维度
	Dimensions() int

	// Close 关闭存储连接
	Close() error
}

// Collection 命名集合的句柄
// 把集合名绑定到底层存储，供管线在一次请求内传递
type Collection struct {
	store Store
	name  string
}

// NewCollection 创建集合句柄
func NewCollection(store Store, name string) *Collection {
	return &Collection{store: store, name: name}
}

// Name 返回集合名
func (c *Collection) Name() string {
	return c.name
}

// Add 向集合追加分块
func (c *Collection) Add(ctx context.Context, chunks []Chunk) error {
	return c.store.Add(ctx, c.name, chunks)
}

// Query 在集合内做相似度搜索
func (c *Collection) Query(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	return c.store.Query(ctx, c.name, vector, limit)
}

// Count 返回集合内的分块总数
func (c *Collection) Count(ctx context.Context) (int, error) {
	return c.store.Count(ctx, c.name)
}

// Config 向量存储配置
type Config struct {
	Type         string       // 存储类型，如 "memory", "mongo"
	Path         string       // 快照文件路径或连接串
	Database     string       // 数据库名（mongo后端使用）
	IndexName    string       // Atlas向量索引名（mongo后端使用）
	Dimension    int          // 向量维度
	DistanceType DistanceType // 距离计算类型
}

// Factory 向量存储工厂函数类型
type Factory func(config Config) (Store, error)

// 注册的向量存储实现
var storeRegistry = map[string]Factory{}

// RegisterStore 注册向量存储工厂函数
func RegisterStore(name string, factory Factory) {
	storeRegistry[name] = factory
}

// NewStore 根据配置创建向量存储实例
// 未指定类型时默认使用内存实现，拼错的类型直接报错而不是静默降级
func NewStore(config Config) (Store, error) {
	if config.Type == "" {
		return NewMemoryStore(config)
	}
	factory, ok := storeRegistry[config.Type]
	if !ok {
		return nil, fmt.Errorf("vector store type not registered: %s", config.Type)
	}
	return factory(config)
}
