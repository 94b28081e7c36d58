package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/repository"
)

func newChatService(t *testing.T) *ChatService {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ChatSession{}, &models.ChatMessage{}))

	return NewChatService(repository.NewChatRepositoryWithDB(db))
}

func TestChatSessionLifecycle(t *testing.T) {
	svc := newChatService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "notes", "transformer questions")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)

	got, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "transformer questions", got.Title)

	require.NoError(t, svc.DeleteSession(ctx, session.ID))
	_, err = svc.GetSession(ctx, session.ID)
	assert.Error(t, err)
}

func TestChatSessionDefaultTitle(t *testing.T) {
	svc := newChatService(t)

	session, err := svc.CreateSession(context.Background(), "notes", "")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Title)
}

func TestChatSessionRequiresCollection(t *testing.T) {
	svc := newChatService(t)

	_, err := svc.CreateSession(context.Background(), "", "title")
	assert.Error(t, err)
}

func TestRecordExchange(t *testing.T) {
	svc := newChatService(t)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "notes", "s")
	require.NoError(t, err)

	result := &QAResult{
		Answer: "Attention weighs token interactions.",
		Sources: []models.Source{
			{ChunkID: "f1-0", FileName: "ml.txt", Position: 0, Text: "Attention...", Score: 0.97},
		},
	}
	require.NoError(t, svc.RecordExchange(ctx, session.ID, "What is attention?", result))

	messages, total, err := svc.GetMessages(ctx, session.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, messages, 2)

	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, "What is attention?", messages[0].Content)

	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	assert.Equal(t, result.Answer, messages[1].Content)

	// 回答消息携带序列化的引用来源
	var sources []models.Source
	require.NoError(t, json.Unmarshal(messages[1].Sources, &sources))
	require.Len(t, sources, 1)
	assert.Equal(t, "f1-0", sources[0].ChunkID)
}

func TestListSessionsByCollection(t *testing.T) {
	svc := newChatService(t)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, "notes", "a")
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "papers", "b")
	require.NoError(t, err)

	sessions, total, err := svc.ListSessions(ctx, "notes", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "a", sessions[0].Title)
}
