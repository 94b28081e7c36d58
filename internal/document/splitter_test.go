package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitFixedWindow 测试固定窗口切分的基本行为
func TestSplitFixedWindow(t *testing.T) {
	splitter := NewTextSplitter(SplitterConfig{
		ChunkSize:    10,
		ChunkOverlap: 3,
	})

	t.Run("overlapping windows", func(t *testing.T) {
		chunks, err := splitter.Split("ABCDEFGHIJKLMNO")
		require.NoError(t, err)
		require.Len(t, chunks, 2)

		assert.Equal(t, "ABCDEFGHIJ", chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Offset)
		// 第二块从偏移7开始，剩余文本不足一个窗口
		assert.Equal(t, "HIJKLMNO", chunks[1].Text)
		assert.Equal(t, 7, chunks[1].Offset)
	})

	t.Run("short text yields single chunk", func(t *testing.T) {
		chunks, err := splitter.Split("short")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "short", chunks[0].Text)
		assert.Equal(t, 0, chunks[0].Index)
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		chunks, err := splitter.Split("")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("chunk indexes are sequential", func(t *testing.T) {
		chunks, err := splitter.Split(strings.Repeat("x", 100))
		require.NoError(t, err)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
		}
	})
}

// TestSplitReconstruction 测试去除重叠后拼接可以还原原文
func TestSplitReconstruction(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{"no overlap", 10, 0, "The quick brown fox jumps over the lazy dog"},
		{"small overlap", 10, 3, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"},
		{"large overlap", 20, 15, strings.Repeat("abcdefg ", 40)},
		{"exact multiple", 5, 2, "aaabbbcccdddeee"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			splitter := NewTextSplitter(SplitterConfig{
				ChunkSize:    tc.size,
				ChunkOverlap: tc.overlap,
			})
			chunks, err := splitter.Split(tc.text)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			var b strings.Builder
			b.WriteString(chunks[0].Text)
			for _, c := range chunks[1:] {
				b.WriteString(c.Text[tc.overlap:])
			}
			assert.Equal(t, tc.text, b.String())
		})
	}
}

// TestSplitInvalidConfig 测试无效配置应该报错
func TestSplitInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals chunk size", 10, 10},
		{"overlap exceeds chunk size", 10, 15},
		{"zero chunk size", 0, 0},
		{"negative chunk size", -5, 0},
		{"negative overlap", 10, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			splitter := NewTextSplitter(SplitterConfig{
				ChunkSize:    tc.size,
				ChunkOverlap: tc.overlap,
			})
			_, err := splitter.Split("some text")
			assert.ErrorIs(t, err, ErrInvalidSplitConfig)
		})
	}
}

// TestSplitMaxChunks 测试最大分块数量限制
func TestSplitMaxChunks(t *testing.T) {
	splitter := NewTextSplitter(SplitterConfig{
		ChunkSize:    10,
		ChunkOverlap: 2,
		MaxChunks:    3,
	})

	chunks, err := splitter.Split(strings.Repeat("y", 200))
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}
