package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imsaurabhkr/EDU-RAG/api/middleware"
	"github.com/imsaurabhkr/EDU-RAG/api/model"
	"github.com/imsaurabhkr/EDU-RAG/internal/models"
	"github.com/imsaurabhkr/EDU-RAG/internal/services"
)

// CollectionHandler 处理集合管理相关的API请求
type CollectionHandler struct {
	collectionService *services.CollectionService // 集合管理服务
	ingestService     *services.IngestService     // 语料入库服务
	logger            *logrus.Logger              // 日志记录器
}

// NewCollectionHandler 创建新的集合处理器
func NewCollectionHandler(collectionService *services.CollectionService, ingestService *services.IngestService) *CollectionHandler {
	return &CollectionHandler{
		collectionService: collectionService,
		ingestService:     ingestService,
		logger:            middleware.GetLogger(),
	}
}

// GetCollection 查询集合详情
// GET /api/collections/:name
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	var req model.CollectionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid collection name", err.Error()))
		return
	}

	info, err := h.collectionService.Describe(c.Request.Context(), req.Name)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.CollectionResponse{
		Name:       info.Name,
		ChunkCount: info.ChunkCount,
		Files:      convertCorpusFiles(info.Files),
	}))
}

// DeleteCollection 删除集合及其语料元数据
// DELETE /api/collections/:name
func (h *CollectionHandler) DeleteCollection(c *gin.Context) {
	var req model.CollectionRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid collection name", err.Error()))
		return
	}

	if err := h.collectionService.Delete(c.Request.Context(), req.Name); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.CollectionDeleteResponse{
		Success: true,
		Name:    req.Name,
	}))
}

// UploadCorpus 上传语料文件并写入集合
// POST /api/collections/:name/corpus
func (h *CollectionHandler) UploadCorpus(c *gin.Context) {
	var uriReq model.CollectionRequest
	if err := c.ShouldBindUri(&uriReq); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid collection name", err.Error()))
		return
	}

	var req model.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid upload request", err.Error()))
		return
	}

	src, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewValidationError("failed to open uploaded file", err.Error()))
		return
	}
	defer src.Close()

	h.logger.WithFields(logrus.Fields{
		"collection": uriReq.Name,
		"filename":   req.File.Filename,
		"size":       req.File.Size,
	}).Info("Uploading corpus file")

	file, err := h.ingestService.IngestUpload(c.Request.Context(), uriReq.Name, src, req.File.Filename)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.UploadResponse{
		FileID:     file.ID,
		FileName:   file.FileName,
		Collection: file.Collection,
		ChunkCount: file.ChunkCount,
	}))
}

func convertCorpusFiles(files []*models.CorpusFile) []model.CorpusFileInfo {
	infos := make([]model.CorpusFileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, model.CorpusFileInfo{
			FileID:     f.ID,
			FileName:   f.FileName,
			FileType:   f.FileType,
			ChunkCount: f.ChunkCount,
			IndexedAt:  f.IndexedAt,
		})
	}
	return infos
}
