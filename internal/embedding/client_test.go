package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGeminiTestServer 模拟Gemini嵌入接口
func newGeminiTestServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = float32(i) * 0.1
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/models/embedding-001:embedContent":
			json.NewEncoder(w).Encode(geminiEmbedResponse{
				Embedding: geminiEmbedding{Values: vector},
			})
		case r.URL.Path == "/models/embedding-001:batchEmbedContents":
			var req geminiBatchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			resp := geminiBatchResponse{}
			for range req.Requests {
				resp.Embeddings = append(resp.Embeddings, geminiEmbedding{Values: vector})
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGeminiEmbed(t *testing.T) {
	server := newGeminiTestServer(t, 8)
	defer server.Close()

	client, err := NewGeminiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithDimensions(8),
	)
	require.NoError(t, err)

	vector, err := client.Embed(context.Background(), "what is photosynthesis")
	require.NoError(t, err)
	assert.Len(t, vector, 8)
	assert.Equal(t, "models/embedding-001", client.Name())
}

func TestGeminiEmbedBatch(t *testing.T) {
	server := newGeminiTestServer(t, 4)
	defer server.Close()

	client, err := NewGeminiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithDimensions(4),
		WithBatchSize(2),
	)
	require.NoError(t, err)

	// 5条文本、批大小2，应当透明地拆成3次请求
	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	for _, v := range vectors {
		assert.Len(t, v, 4)
	}
}

func TestGeminiDimensionMismatch(t *testing.T) {
	server := newGeminiTestServer(t, 8)
	defer server.Close()

	client, err := NewGeminiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithDimensions(16),
	)
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "mismatch")
	require.Error(t, err)
	var embErr EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, ErrCodeBadDimension, embErr.Code)
}

func TestGeminiEmptyInput(t *testing.T) {
	client, err := NewGeminiClient(WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "")
	var embErr EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, ErrCodeEmptyInput, embErr.Code)
}

func TestGeminiMissingAPIKey(t *testing.T) {
	_, err := NewGeminiClient()
	require.Error(t, err)
	var embErr EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, ErrCodeInvalidAPIKey, embErr.Code)
}

func TestOpenAIEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := openAIEmbedResponse{}
		// 逆序返回，客户端应该按index重排
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{float32(i), 1, 2}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithDimensions(3),
	)
	require.NoError(t, err)

	vectors, err := client.EmbedBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(0), vectors[0][0])
	assert.Equal(t, float32(1), vectors[1][0])
}

func TestOpenAIAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewOpenAIClient(WithAPIKey("bad-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "text")
	var embErr EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Equal(t, ErrCodeInvalidAPIKey, embErr.Code)
}

func TestClientRegistry(t *testing.T) {
	t.Run("registered providers", func(t *testing.T) {
		for _, name := range []string{"gemini", "openai"} {
			_, ok := clientFactories[name]
			assert.True(t, ok, "provider %s should be registered", name)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient("no-such-provider")
		assert.Error(t, err)
	})
}
