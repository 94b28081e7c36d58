package models

import "errors"

var (
	// ErrCorpusFileNotFound 语料文件不存在错误
	ErrCorpusFileNotFound = errors.New("corpus file not found")

	// ErrSessionNotFound 会话不存在错误
	ErrSessionNotFound = errors.New("chat session not found")
)
