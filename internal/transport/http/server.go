package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"issa-assistant/internal/ai"
	appsvc "issa-assistant/internal/app"
	"issa-assistant/internal/bootstrap"
	"issa-assistant/internal/cache"
	"issa-assistant/internal/platform/rabbitmq"
	"issa-assistant/internal/repository"
	"issa-assistant/internal/transport/http/handler"
	"issa-assistant/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(app.Config.CORS.AllowedOrigins))

	promptRepo := repository.NewPromptRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	promptCache := cache.NewPromptCache(app.Redis, time.Duration(app.Config.Prompt.CacheTTLSeconds)*time.Second)
	eventPublisher := rabbitmq.NewTurnEventPublisher(app.MQConn, app.Config.RabbitMQ.TurnEventQueue)

	assistantService := appsvc.NewAssistantService(
		promptRepo,
		promptCache,
		sessionRepo,
		messageRepo,
		ai.NewOpenAICompatibleClient(),
		eventPublisher,
		app.Config.Prompt.Name,
		app.Config.Prompt.Fallback,
		ai.ChatConfig{
			BaseURL:     app.Config.LLM.BaseURL,
			APIKey:      app.Config.LLM.APIKey,
			Model:       app.Config.LLM.Model,
			Temperature: app.Config.LLM.ReplyTemperature,
		},
	)

	assistantHandler := handler.NewAssistantHandler(assistantService)
	healthHandler := handler.NewHealthHandler(app)

	router.GET("/", assistantHandler.Home)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/get-sessions", assistantHandler.GetSessions)
	router.GET("/get-messages/:sessionId", assistantHandler.GetMessages)
	router.DELETE("/clear-history", assistantHandler.ClearHistory)
	router.POST("/generate-reply", assistantHandler.GenerateReply)

	return router
}
