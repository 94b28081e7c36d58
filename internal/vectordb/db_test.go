package vectordb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestStore(t *testing.T) Store {
	store, err := NewMemoryStore(Config{
		Dimension:    4,
		DistanceType: Cosine,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetOrCreateIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	coll, err := store.GetOrCreate(ctx, "notes")
	require.NoError(t, err)
	require.NotNil(t, coll)

	err = coll.Add(ctx, []Chunk{
		{ID: "c-0", Text: "hello", Vector: []float32{1, 0, 0, 0}},
	})
	require.NoError(t, err)

	// 再次获取同名集合不应清空已有数据
	again, err := store.GetOrCreate(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, "notes", again.Name())

	count, err := again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetOrCreateEmptyName(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetOrCreate(context.Background(), "")
	assert.Error(t, err)
}

func TestAddAndQueryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	chunks := []Chunk{
		{ID: "c-0", Text: "alpha", Vector: []float32{1, 0, 0, 0}},
		{ID: "c-1", Text: "beta", Vector: []float32{0, 1, 0, 0}},
		{ID: "c-2", Text: "gamma", Vector: []float32{0, 0, 1, 0}},
	}
	require.NoError(t, store.Add(ctx, "docs", chunks))

	// 用已写入的向量查询，最近邻应该是它自己
	results, err := store.Query(ctx, "docs", []float32{0, 1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c-1", results[0].Chunk.ID)
	assert.Equal(t, "beta", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Query(context.Background(), "never-written", []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryTieBreakByInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// 三个同向向量得分完全相同，结果顺序应按插入顺序
	same := []float32{1, 1, 0, 0}
	require.NoError(t, store.Add(ctx, "ties", []Chunk{
		{ID: "first", Vector: same},
		{ID: "second", Vector: same},
		{ID: "third", Vector: same},
	}))

	results, err := store.Query(ctx, "ties", same, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk.ID)
	assert.Equal(t, "second", results[1].Chunk.ID)
	assert.Equal(t, "third", results[2].Chunk.ID)
}

func TestQueryLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "docs", []Chunk{
		{ID: "c-0", Vector: []float32{1, 0, 0, 0}},
		{ID: "c-1", Vector: []float32{0.9, 0.1, 0, 0}},
		{ID: "c-2", Vector: []float32{0, 0, 1, 0}},
	}))

	results, err := store.Query(ctx, "docs", []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestAddDimensionMismatch(t *testing.T) {
	store := newTestStore(t)

	err := store.Add(context.Background(), "docs", []Chunk{
		{ID: "bad", Vector: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestQueryDimensionMismatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Query(context.Background(), "docs", []float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestAddDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "docs", []Chunk{
		{ID: "dup", Vector: []float32{1, 0, 0, 0}},
	}))
	err := store.Add(ctx, "docs", []Chunk{
		{ID: "dup", Vector: []float32{0, 1, 0, 0}},
	})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestAddAssignsMissingIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "docs", []Chunk{
		{Vector: []float32{1, 0, 0, 0}},
	}))

	results, err := store.Query(ctx, "docs", []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Chunk.ID)
}

func TestDeleteCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "docs", []Chunk{
		{ID: "c-0", Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, store.DeleteCollection(ctx, "docs"))

	count, err := store.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// 删除不存在的集合不报错
	assert.NoError(t, store.DeleteCollection(ctx, "missing"))
}

func TestSnapshotPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.json")

	store, err := NewMemoryStore(Config{
		Dimension:    4,
		DistanceType: Cosine,
		Path:         path,
	})
	require.NoError(t, err)

	require.NoError(t, store.Add(ctx, "persisted", []Chunk{
		{ID: "c-0", Text: "saved", Vector: []float32{0, 0, 0, 1}},
	}))
	require.NoError(t, store.Close())

	// 用同一快照路径重建存储，数据应该恢复
	reopened, err := NewMemoryStore(Config{
		Dimension:    4,
		DistanceType: Cosine,
		Path:         path,
	})
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Query(ctx, "persisted", []float32{0, 0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "saved", results[0].Chunk.Text)
}

func TestSnapshotDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")

	store, err := NewMemoryStore(Config{Dimension: 4, Path: path})
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), "docs", []Chunk{
		{ID: "c-0", Vector: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, store.Close())

	_, err = NewMemoryStore(Config{Dimension: 8, Path: path})
	assert.ErrorIs(t, err, ErrInvalidDimension)
}

func TestClosedStore(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	err := store.Add(context.Background(), "docs", []Chunk{
		{ID: "c-0", Vector: []float32{1, 0, 0, 0}},
	})
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = store.Query(context.Background(), "docs", []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestStoreFactory(t *testing.T) {
	store, err := NewStore(Config{Type: "memory", Dimension: 4})
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, 4, store.Dimensions())

	// 未指定类型时默认使用内存实现
	fallback, err := NewStore(Config{Dimension: 4})
	require.NoError(t, err)
	defer fallback.Close()
	assert.Equal(t, 4, fallback.Dimensions())

	// 拼错的类型必须报错，不能静默降级为内存实现
	unknown, err := NewStore(Config{Type: "unknown", Dimension: 4})
	assert.Error(t, err)
	assert.Nil(t, unknown)
	assert.Contains(t, err.Error(), "unknown")
}

func TestVectorSearchUnavailable(t *testing.T) {
	// 索引不可用的聚合错误允许退化为精确扫描
	assert.True(t, vectorSearchUnavailable(mongo.CommandError{
		Code: 40324, Message: "Unrecognized pipeline stage name: '$vectorSearch'",
	}))
	assert.True(t, vectorSearchUnavailable(mongo.CommandError{
		Code: 8, Message: "vector search index vector_index does not exist",
	}))

	// 取消、超时和认证失败必须原样上抛
	assert.False(t, vectorSearchUnavailable(context.Canceled))
	assert.False(t, vectorSearchUnavailable(context.DeadlineExceeded))
	assert.False(t, vectorSearchUnavailable(mongo.CommandError{
		Code: 13, Message: "command aggregate requires authentication",
	}))
	assert.False(t, vectorSearchUnavailable(errors.New("connection reset")))
}

func TestComputeDistance(t *testing.T) {
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}

	cos, err := ComputeDistance(a, b, Cosine)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cos, 1e-6) // 正交向量余弦距离为1

	same, err := ComputeDistance(a, a, Cosine)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, same, 1e-6)

	euc, err := ComputeDistance(a, b, Euclidean)
	require.NoError(t, err)
	assert.InDelta(t, 1.4142135, euc, 1e-5)

	_, err = ComputeDistance(a, []float32{1, 0}, Cosine)
	assert.Error(t, err)
}

func TestDistanceToScore(t *testing.T) {
	assert.InDelta(t, 1.0, DistanceToScore(0, Cosine), 1e-6)
	assert.InDelta(t, 0.0, DistanceToScore(1, Cosine), 1e-6)
	assert.InDelta(t, 1.0, DistanceToScore(0, Euclidean), 1e-6)
	assert.Greater(t, DistanceToScore(0.5, Euclidean), DistanceToScore(2.0, Euclidean))
}
