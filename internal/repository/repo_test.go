package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/imsaurabhkr/EDU-RAG/internal/models"
)

// setupTestDB 创建内存SQLite数据库用于测试
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.CorpusFile{},
		&models.ChatSession{},
		&models.ChatMessage{},
	)
	require.NoError(t, err)

	return db
}

func TestCorpusRepoCreateAndGet(t *testing.T) {
	repo := NewCorpusRepositoryWithDB(setupTestDB(t))

	file := &models.CorpusFile{
		ID:         "file-1",
		Collection: "notes",
		FileName:   "lecture.pdf",
		FileType:   "pdf",
		FilePath:   "data/uploads/lecture.pdf",
		FileSize:   2048,
		ChunkCount: 5,
	}
	require.NoError(t, repo.Create(file))

	got, err := repo.GetByID("file-1")
	require.NoError(t, err)
	assert.Equal(t, "lecture.pdf", got.FileName)
	assert.Equal(t, 5, got.ChunkCount)
	assert.False(t, got.IndexedAt.IsZero())
}

func TestCorpusRepoValidation(t *testing.T) {
	repo := NewCorpusRepositoryWithDB(setupTestDB(t))

	assert.Error(t, repo.Create(&models.CorpusFile{Collection: "notes"}))
	assert.Error(t, repo.Create(&models.CorpusFile{ID: "file-1"}))
}

func TestCorpusRepoGetMissing(t *testing.T) {
	repo := NewCorpusRepositoryWithDB(setupTestDB(t))

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, models.ErrCorpusFileNotFound)
}

func TestCorpusRepoListByCollection(t *testing.T) {
	repo := NewCorpusRepositoryWithDB(setupTestDB(t))

	for _, f := range []*models.CorpusFile{
		{ID: "f-1", Collection: "notes", FileName: "a.txt", FileType: "txt", FilePath: "a", FileSize: 1},
		{ID: "f-2", Collection: "notes", FileName: "b.txt", FileType: "txt", FilePath: "b", FileSize: 1},
		{ID: "f-3", Collection: "papers", FileName: "c.txt", FileType: "txt", FilePath: "c", FileSize: 1},
	} {
		require.NoError(t, repo.Create(f))
	}

	files, total, err := repo.ListByCollection("notes", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, files, 2)

	files, total, err = repo.ListByCollection("papers", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "c.txt", files[0].FileName)
}

func TestCorpusRepoDeleteByCollection(t *testing.T) {
	repo := NewCorpusRepositoryWithDB(setupTestDB(t))

	require.NoError(t, repo.Create(&models.CorpusFile{
		ID: "f-1", Collection: "notes", FileName: "a.txt", FileType: "txt", FilePath: "a", FileSize: 1,
	}))
	require.NoError(t, repo.DeleteByCollection("notes"))

	_, total, err := repo.ListByCollection("notes", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestChatRepoSessionLifecycle(t *testing.T) {
	repo := NewChatRepositoryWithDB(setupTestDB(t))

	session := &models.ChatSession{
		Collection: "notes",
		Title:      "attention questions",
	}
	require.NoError(t, repo.CreateSession(session))
	require.NotEmpty(t, session.ID) // 未指定ID时自动生成

	got, err := repo.GetSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, "attention questions", got.Title)
	assert.Equal(t, "notes", got.Collection)

	require.NoError(t, repo.DeleteSession(session.ID))
	_, err = repo.GetSession(session.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestChatRepoSessionRequiresCollection(t *testing.T) {
	repo := NewChatRepositoryWithDB(setupTestDB(t))
	assert.Error(t, repo.CreateSession(&models.ChatSession{Title: "no collection"}))
}

func TestChatRepoMessages(t *testing.T) {
	repo := NewChatRepositoryWithDB(setupTestDB(t))

	session := &models.ChatSession{Collection: "notes", Title: "s"}
	require.NoError(t, repo.CreateSession(session))

	require.NoError(t, repo.CreateMessage(&models.ChatMessage{
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   "What is attention?",
	}))
	require.NoError(t, repo.CreateMessage(&models.ChatMessage{
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   "Attention weighs token interactions.",
	}))

	messages, total, err := repo.GetMessages(session.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, messages, 2)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)

	count, err := repo.CountMessages(session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestChatRepoMessagesMissingSession(t *testing.T) {
	repo := NewChatRepositoryWithDB(setupTestDB(t))

	_, _, err := repo.GetMessages("missing", 0, 10)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	assert.Error(t, repo.CreateMessage(&models.ChatMessage{Content: "orphan"}))
}

func TestChatRepoListSessions(t *testing.T) {
	repo := NewChatRepositoryWithDB(setupTestDB(t))

	require.NoError(t, repo.CreateSession(&models.ChatSession{Collection: "notes", Title: "a"}))
	require.NoError(t, repo.CreateSession(&models.ChatSession{Collection: "papers", Title: "b"}))

	sessions, total, err := repo.ListSessions("", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, sessions, 2)

	sessions, total, err = repo.ListSessions("notes", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "a", sessions[0].Title)
}
