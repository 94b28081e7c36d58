package api

import (
	"github.com/gin-gonic/gin"

	"github.com/imsaurabhkr/EDU-RAG/api/handler"
	"github.com/imsaurabhkr/EDU-RAG/api/middleware"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	qaHandler *handler.QAHandler,
	collectionHandler *handler.CollectionHandler,
	chatHandler *handler.ChatHandler,
) *gin.Engine {
	// 创建默认的Gin路由引擎
	router := gin.Default()

	// 应用全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(middleware.SetTraceID())

	// 在调试模式下记录请求体和响应体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	// 创建API分组
	api := router.Group("/api")
	{
		// 问答API
		qaGroup := api.Group("/qa")
		{
			// 回答问题 - POST /api/qa
			qaGroup.POST("", qaHandler.AnswerQuestion)
		}

		// 集合管理API
		collectionGroup := api.Group("/collections")
		{
			// 查询集合详情 - GET /api/collections/:name
			collectionGroup.GET("/:name", collectionHandler.GetCollection)

			// 删除集合 - DELETE /api/collections/:name
			collectionGroup.DELETE("/:name", collectionHandler.DeleteCollection)

			// 上传语料文件 - POST /api/collections/:name/corpus
			collectionGroup.POST("/:name/corpus", collectionHandler.UploadCorpus)
		}

		// 会话管理API
		sessionGroup := api.Group("/sessions")
		{
			// 创建会话 - POST /api/sessions
			sessionGroup.POST("", chatHandler.CreateSession)

			// 查询会话列表 - GET /api/sessions
			sessionGroup.GET("", chatHandler.ListSessions)

			// 查询单个会话 - GET /api/sessions/:id
			sessionGroup.GET("/:id", chatHandler.GetSession)

			// 删除会话 - DELETE /api/sessions/:id
			sessionGroup.DELETE("/:id", chatHandler.DeleteSession)

			// 查询会话消息 - GET /api/sessions/:id/messages
			sessionGroup.GET("/:id/messages", chatHandler.GetMessages)
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}
