package vectordb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultMongoDatabase  = "edu_rag"
	defaultMongoIndexName = "vector_index"
	mongoConnectTimeout   = 10 * time.Second
	// Atlas建议候选数取limit的10到20倍
	vectorSearchCandidateFactor = 15
)

// MongoStore MongoDB向量存储实现
// 每个命名集合对应数据库里的一个collection
// 查询优先走Atlas的$vectorSearch索引，索引不可用时
// 退化为拉取全量分块在本地做精确打分
type MongoStore struct {
	client    *mongo.Client
	database  string
	indexName string
	dimension int
	distType  DistanceType
}

// NewMongoStore 创建MongoDB向量存储
func NewMongoStore(config Config) (Store, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("mongodb connection uri cannot be empty")
	}
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	database := config.Database
	if database == "" {
		database = defaultMongoDatabase
	}
	indexName := config.IndexName
	if indexName == "" {
		indexName = defaultMongoIndexName
	}
	distType := config.DistanceType
	if distType != Cosine && distType != DotProduct && distType != Euclidean {
		distType = Cosine
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client:    client,
		database:  database,
		indexName: indexName,
		dimension: config.Dimension,
		distType:  distType,
	}, nil
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.client.Database(s.database).Collection(name)
}

// GetOrCreate 获取或创建命名集合
// 集合已存在时CreateCollection返回NamespaceExists，按幂等处理
func (s *MongoStore) GetOrCreate(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}

	err := s.client.Database(s.database).CreateCollection(ctx, name)
	if err != nil {
		var cmdErr mongo.CommandError
		if !(errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists") {
			return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}

	return NewCollection(s, name), nil
}

// Add 向集合批量写入分块
func (s *MongoStore) Add(ctx context.Context, collection string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	coll := s.collection(collection)
	base, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("failed to count documents in %s: %w", collection, err)
	}

	docs := make([]interface{}, 0, len(chunks))
	for i := range chunks {
		chunk := chunks[i]

		if err := ValidateVector(chunk.Vector, s.dimension); err != nil {
			return fmt.Errorf("invalid vector for chunk %q: %w", chunk.ID, err)
		}
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now()
		}
		chunk.Seq = base + int64(i)
		docs = append(docs, chunk)
	}

	if _, err := coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateID, err)
		}
		return fmt.Errorf("failed to insert chunks into %s: %w", collection, err)
	}
	return nil
}

// Query 在集合内做相似度搜索
func (s *MongoStore) Query(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error) {
	if err := ValidateVector(vector, s.dimension); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}

	results, err := s.vectorSearch(ctx, collection, vector, limit)
	if err == nil {
		return results, nil
	}

	// $vectorSearch需要Atlas搜索索引，本地部署或索引缺失时
	// 聚合会报错，此时退化为精确扫描；
	// 取消、超时和认证失败等其他错误原样返回
	if !vectorSearchUnavailable(err) {
		return nil, fmt.Errorf("vector search on %s failed: %w", collection, err)
	}
	return s.exactSearch(ctx, collection, vector, limit)
}

// Atlas之外的mongod不认识$vectorSearch阶段时返回的错误码
const codeUnrecognizedPipelineStage = 40324

// vectorSearchUnavailable 判断聚合错误是否意味着搜索索引不可用
// 只有这类错误才允许退化为精确扫描
func vectorSearchUnavailable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	if cmdErr.Code == codeUnrecognizedPipelineStage {
		return true
	}
	return cmdErr.HasErrorMessage("$vectorSearch") ||
		cmdErr.HasErrorMessage("vector search index")
}

// vectorSearch 使用Atlas搜索索引的近似检索
func (s *MongoStore) vectorSearch(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error) {
	queryVector := make([]float64, len(vector))
	for i, v := range vector {
		queryVector[i] = float64(v)
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: bson.D{
			{Key: "index", Value: s.indexName},
			{Key: "path", Value: "vector"},
			{Key: "queryVector", Value: queryVector},
			{Key: "numCandidates", Value: limit * vectorSearchCandidateFactor},
			{Key: "limit", Value: limit},
		}}},
		bson.D{{Key: "$addFields", Value: bson.D{
			{Key: "search_score", Value: bson.D{{Key: "$meta", Value: "vectorSearchScore"}}},
		}}},
	}

	cursor, err := s.collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Chunk `bson:",inline"`
		Score float64 `bson:"search_score"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(docs))
	for _, doc := range docs {
		score := float32(doc.Score)
		results = append(results, SearchResult{
			Chunk:    doc.Chunk,
			Score:    score,
			Distance: 1 - score,
		})
	}
	return results, nil
}

// exactSearch 拉取集合全量分块并在本地打分排序
func (s *MongoStore) exactSearch(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error) {
	cursor, err := s.collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var chunks []Chunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks from %s: %w", collection, err)
	}
	if len(chunks) == 0 {
		return []SearchResult{}, nil
	}

	query := vector
	if s.distType == Cosine {
		query = normalizeVector(vector)
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		candidate := chunk.Vector
		if s.distType == Cosine {
			candidate = normalizeVector(candidate)
		}
		dist, err := ComputeDistance(query, candidate, s.distType)
		if err != nil {
			return nil, fmt.Errorf("error computing distance: %w", err)
		}
		results = append(results, SearchResult{
			Chunk:    chunk,
			Score:    DistanceToScore(dist, s.distType),
			Distance: dist,
		})
	}

	SortSearchResults(results)

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count 返回集合内的分块总数
func (s *MongoStore) Count(ctx context.Context, collection string) (int, error) {
	n, err := s.collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count documents in %s: %w", collection, err)
	}
	return int(n), nil
}

// DeleteCollection 删除整个集合及其数据
// Drop对不存在的集合不报错，天然幂等
func (s *MongoStore) DeleteCollection(ctx context.Context, name string) error {
	if err := s.collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	return nil
}

// Dimensions 返回向量维度
func (s *MongoStore) Dimensions() int {
	return s.dimension
}

// Close 断开MongoDB连接
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// 在包初始化时注册MongoDB存储
func init() {
	RegisterStore("mongo", NewMongoStore)
}
