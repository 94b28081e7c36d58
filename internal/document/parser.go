package document

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// 文档解析相关的错误定义
var (
	// ErrUnsupportedType 不支持的文档类型
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrEmptyDocument 文档中没有可提取的文本
	ErrEmptyDocument = errors.New("no text content found in document")
	// ErrInvalidSplitConfig 无效的分块配置（重叠大小必须小于分块大小）
	ErrInvalidSplitConfig = errors.New("invalid split config: overlap must be smaller than chunk size")
)

// Parser 文档解析器接口
// 负责将不同格式的源文件解析为纯文本
type Parser interface {
	// Parse 解析文档，返回文本内容
	Parse(filePath string) (string, error)

	// ParseReader 从Reader解析文档，返回文本内容
	// filename用于确定文档类型
	ParseReader(r io.Reader, filename string) (string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ParserFactory 解析器工厂函数，根据文件扩展名创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	switch detectContentType(filePath) {
	case PDF:
		return NewPDFParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, ErrUnsupportedType
	}
}

// detectContentType 根据文件扩展名检测内容类型
func detectContentType(filePath string) ContentType {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// Chunk 文档分块
// 是入库和检索的最小文本单元
type Chunk struct {
	Text   string // 分块文本内容
	Index  int    // 在所属文档中的序号
	Offset int    // 在原始文本中的起始位置
}

// Splitter 文本分块器接口
// 负责将长文本切分为适合向量化的小块
type Splitter interface {
	// Split 将文本切分为分块序列
	Split(text string) ([]Chunk, error)
}
