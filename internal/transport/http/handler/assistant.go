package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"issa-assistant/internal/ai"
	"issa-assistant/internal/app"
)

// fallbackReply is what the client sees whenever a turn fails internally.
// The reply route never surfaces a non-200 status for model or store
// failures; the product prefers a degraded answer over an error screen.
const fallbackReply = "I'm refreshing my memory... 🇦🇺"

type AssistantHandler struct {
	service *app.AssistantService
}

type GenerateReplyRequest struct {
	ClientSequence string           `json:"clientSequence"`
	ChatHistory    []ai.ChatMessage `json:"chatHistory"`
	SessionID      string           `json:"sessionId"`
}

type MessageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewAssistantHandler(service *app.AssistantService) *AssistantHandler {
	return &AssistantHandler{service: service}
}

func (h *AssistantHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"message": "Issa Assistant Backend is Live! 🧭✨",
		"vibe":    "Main Character Mode Activated 🇦🇺",
	})
}

func (h *AssistantHandler) GetSessions(c *gin.Context) {
	sessions, err := h.service.ListSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *AssistantHandler) GetMessages(c *gin.Context) {
	messages, err := h.service.SessionMessages(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, MessageView{Role: m.Role, Content: m.Content})
	}
	c.JSON(http.StatusOK, views)
}

func (h *AssistantHandler) ClearHistory(c *gin.Context) {
	if err := h.service.ClearHistory(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "History cleared"})
}

func (h *AssistantHandler) GenerateReply(c *gin.Context) {
	var req GenerateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("generate reply: bad payload: %v", err)
		c.JSON(http.StatusOK, gin.H{"aiReply": fallbackReply})
		return
	}

	result, err := h.service.HandleTurn(c.Request.Context(), app.TurnInput{
		Content:   req.ClientSequence,
		History:   req.ChatHistory,
		SessionID: req.SessionID,
	})
	if err != nil {
		log.Printf("generate reply failed: %v", err)
		c.JSON(http.StatusOK, gin.H{"aiReply": fallbackReply})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"aiReply":   result.Reply,
		"sessionId": result.SessionID,
	})
}
