package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imsaurabhkr/EDU-RAG/internal/cache"
	"github.com/imsaurabhkr/EDU-RAG/internal/document"
	"github.com/imsaurabhkr/EDU-RAG/internal/llm"
	"github.com/imsaurabhkr/EDU-RAG/internal/vectordb"
)

// stubEmbedder 确定性嵌入客户端
// 按关键词把文本映射到固定向量，便于构造可预测的检索结果
type stubEmbedder struct {
	calls int
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "attention"):
		return []float32{1, 0, 0, 0}, nil
	case strings.Contains(lower, "gradient"):
		return []float32{0, 1, 0, 0}, nil
	case strings.Contains(lower, "protein"):
		return []float32{0, 0, 1, 0}, nil
	default:
		return []float32{0, 0, 0, 1}, nil
	}
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *stubEmbedder) Name() string    { return "stub" }
func (e *stubEmbedder) Dimensions() int { return 4 }

// stubLLM 记录提示词并返回固定回答的大模型客户端
type stubLLM struct {
	lastPrompt string
	answer     string
	err        error
	calls      int
}

func (c *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.GenerateOption) (*llm.Response, error) {
	c.calls++
	c.lastPrompt = prompt
	if c.err != nil {
		return nil, c.err
	}
	answer := c.answer
	if answer == "" {
		answer = "Attention weighs how much each token attends to the others."
	}
	return &llm.Response{Text: answer, ModelName: "stub"}, nil
}

func (c *stubLLM) Name() string { return "stub" }

func newQAFixture(t *testing.T) (*QAService, *stubEmbedder, *stubLLM, vectordb.Store) {
	store, err := vectordb.NewMemoryStore(vectordb.Config{Dimension: 4})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder := &stubEmbedder{}
	model := &stubLLM{}
	rag := llm.NewRAG(model)
	qaCache, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	qa := NewQAService(embedder, store, rag, qaCache)
	return qa, embedder, model, store
}

func seedCollection(t *testing.T, store vectordb.Store, collection string) {
	ctx := context.Background()
	chunks := []vectordb.Chunk{
		{ID: "f1-0", FileID: "f1", FileName: "ml.txt", Position: 0,
			Text: "Attention lets the model focus on relevant tokens.", Vector: []float32{1, 0, 0, 0}},
		{ID: "f1-1", FileID: "f1", FileName: "ml.txt", Position: 1,
			Text: "Gradient descent updates weights step by step.", Vector: []float32{0, 1, 0, 0}},
		{ID: "f2-0", FileID: "f2", FileName: "bio.txt", Position: 0,
			Text: "Proteins fold into three dimensional shapes.", Vector: []float32{0, 0, 1, 0}},
	}
	require.NoError(t, store.Add(ctx, collection, chunks))
}

func TestAnswerRetrievesNearestChunk(t *testing.T) {
	qa, _, model, store := newQAFixture(t)
	seedCollection(t, store, "notes")

	result, err := qa.Answer(context.Background(), "notes", "What is attention?")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Answer)
	assert.False(t, result.Cached)

	// 最相关的分块应该排在引用列表首位，且出现在提示词里
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, "f1-0", result.Sources[0].ChunkID)
	assert.Equal(t, "ml.txt", result.Sources[0].FileName)
	assert.Contains(t, model.lastPrompt, "Attention lets the model focus")
	assert.Contains(t, model.lastPrompt, "What is attention?")
}

func TestAnswerEmptyCollectionStrict(t *testing.T) {
	qa, _, model, _ := newQAFixture(t)

	// 从未写入的集合：不调用模型，返回固定的无上下文回答
	result, err := qa.Answer(context.Background(), "empty", "What is attention?")
	require.NoError(t, err)
	assert.Equal(t, llm.NoContextAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0, model.calls)
}

func TestAnswerCacheHit(t *testing.T) {
	qa, embedder, model, store := newQAFixture(t)
	seedCollection(t, store, "notes")
	ctx := context.Background()

	first, err := qa.Answer(ctx, "notes", "What is attention?")
	require.NoError(t, err)
	embedCallsAfterFirst := embedder.calls
	llmCallsAfterFirst := model.calls

	// 第二次同样的问题应命中缓存，不再调用嵌入和模型
	second, err := qa.Answer(ctx, "notes", "What is attention?")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, embedCallsAfterFirst, embedder.calls)
	assert.Equal(t, llmCallsAfterFirst, model.calls)
}

func TestAnswerValidation(t *testing.T) {
	qa, _, _, _ := newQAFixture(t)
	ctx := context.Background()

	_, err := qa.Answer(ctx, "", "question")
	assert.Error(t, err)

	_, err = qa.Answer(ctx, "notes", "")
	assert.Error(t, err)
}

func TestAnswerPropagatesLLMError(t *testing.T) {
	qa, _, model, store := newQAFixture(t)
	seedCollection(t, store, "notes")
	model.err = errors.New("model unavailable")

	_, err := qa.Answer(context.Background(), "notes", "What is attention?")
	assert.Error(t, err)
}

func TestAnswerMinScoreFilter(t *testing.T) {
	store, err := vectordb.NewMemoryStore(vectordb.Config{Dimension: 4})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	seedCollection(t, store, "notes")

	embedder := &stubEmbedder{}
	model := &stubLLM{}
	qaCache, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	qa := NewQAService(embedder, store, llm.NewRAG(model), qaCache,
		WithMinScore(0.99), WithSearchLimit(3))

	result, err := qa.Answer(context.Background(), "notes", "What is attention?")
	require.NoError(t, err)

	// 正交分块得分为0被过滤，只剩完全匹配的那一个
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "f1-0", result.Sources[0].ChunkID)
}

func TestAnswerWithCorpusIngestsThenAnswers(t *testing.T) {
	qa, embedder, model, store := newQAFixture(t)

	splitter := document.NewTextSplitter(document.SplitterConfig{
		ChunkSize:    100,
		ChunkOverlap: 0,
	})
	ingester := NewIngestService(splitter, embedder, store)
	WithIngester(ingester)(qa)

	corpusPath := filepath.Join(t.TempDir(), "ml.txt")
	require.NoError(t, os.WriteFile(corpusPath,
		[]byte("Attention lets the model focus on relevant tokens."), 0644))

	result, err := qa.AnswerWithCorpus(context.Background(), "fresh", "What is attention?", corpusPath)
	require.NoError(t, err)
	assert.NotEqual(t, llm.NoContextAnswer, result.Answer)
	require.NotEmpty(t, result.Sources)
	assert.Equal(t, 0, result.Sources[0].Position)
	assert.Equal(t, 1, model.calls)

	count, err := store.Count(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAnswerWithCorpusMissingIngester(t *testing.T) {
	qa, _, _, _ := newQAFixture(t)

	_, err := qa.AnswerWithCorpus(context.Background(), "notes", "q", "/tmp/missing.txt")
	assert.Error(t, err)
}
