package document

// SplitterConfig 分块器配置
type SplitterConfig struct {
	ChunkSize    int // 分块大小（字节数）
	ChunkOverlap int // 相邻分块的重叠大小（字节数）
	MaxChunks    int // 最大分块数量（0表示不限制）
}

// DefaultSplitterConfig 返回默认分块器配置
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
		MaxChunks:    0,
	}
}

// TextSplitter 固定窗口文本分块器
// 以ChunkSize为窗口、ChunkSize-ChunkOverlap为步长滑动切分文本，
// 相邻分块之间重叠ChunkOverlap个字节，最后一块可以短于窗口大小
type TextSplitter struct {
	config SplitterConfig
}

// NewTextSplitter 创建新的文本分块器
func NewTextSplitter(config SplitterConfig) *TextSplitter {
	return &TextSplitter{
		config: config,
	}
}

// Split 将文本切分为带重叠的分块序列
// 空文本返回空序列；短于窗口大小的文本整体作为一个分块返回
func (s *TextSplitter) Split(text string) ([]Chunk, error) {
	if s.config.ChunkSize <= 0 || s.config.ChunkOverlap < 0 {
		return nil, ErrInvalidSplitConfig
	}
	// 步长必须严格为正，否则切分无法前进
	if s.config.ChunkOverlap >= s.config.ChunkSize {
		return nil, ErrInvalidSplitConfig
	}

	chunks := []Chunk{}
	step := s.config.ChunkSize - s.config.ChunkOverlap

	for cursor := 0; cursor < len(text); cursor += step {
		end := cursor + s.config.ChunkSize
		if end > len(text) {
			end = len(text)
		}

		chunks = append(chunks, Chunk{
			Text:   text[cursor:end],
			Index:  len(chunks),
			Offset: cursor,
		})

		if s.config.MaxChunks > 0 && len(chunks) >= s.config.MaxChunks {
			break
		}

		// 当前分块已覆盖到文本末尾，不再产生只含尾部重叠的分块
		if end == len(text) {
			break
		}
	}

	return chunks, nil
}
