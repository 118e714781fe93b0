package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"issa-assistant/internal/ai"
	"issa-assistant/internal/model"
)

const sessionTitleLimit = 30

type PromptStore interface {
	GetContent(name string) (string, error)
	SetContent(name, content string) error
}

type PromptCache interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, content string) error
}

type SessionStore interface {
	Create(session *model.ChatSession) error
	ListNewestFirst() ([]model.ChatSession, error)
	DeleteAll() error
}

type MessageStore interface {
	Create(message *model.ChatMessage) error
	ListBySessionID(sessionID string) ([]model.ChatMessage, error)
}

type CompletionClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

type TurnEventPublisher interface {
	Publish(ctx context.Context, event model.TurnEvent) error
}

type TurnInput struct {
	Content   string
	History   []ai.ChatMessage
	SessionID string
}

type TurnResult struct {
	Reply     string
	SessionID string
}

// AssistantService runs the reply pipeline: prompt lookup, optional prompt
// rewrite, session resolution, message persistence, reply generation.
type AssistantService struct {
	prompts     PromptStore
	promptCache PromptCache
	sessions    SessionStore
	messages    MessageStore
	llm         CompletionClient
	editor      *PromptEditor
	events      TurnEventPublisher

	promptName     string
	fallbackPrompt string
	replyLLM       ai.ChatConfig
}

func NewAssistantService(
	prompts PromptStore,
	promptCache PromptCache,
	sessions SessionStore,
	messages MessageStore,
	llm CompletionClient,
	events TurnEventPublisher,
	promptName string,
	fallbackPrompt string,
	replyLLM ai.ChatConfig,
) *AssistantService {
	return &AssistantService{
		prompts:        prompts,
		promptCache:    promptCache,
		sessions:       sessions,
		messages:       messages,
		llm:            llm,
		editor:         NewPromptEditor(llm, ai.ChatConfig{BaseURL: replyLLM.BaseURL, APIKey: replyLLM.APIKey, Model: replyLLM.Model}),
		events:         events,
		promptName:     promptName,
		fallbackPrompt: fallbackPrompt,
		replyLLM:       replyLLM,
	}
}

// HandleTurn runs one full turn. Failures after the user message is persisted
// leave that message in place; the caller decides how to surface the error.
func (s *AssistantService) HandleTurn(ctx context.Context, input TurnInput) (result *TurnResult, err error) {
	started := time.Now()
	learned := false
	sessionID := input.SessionID
	defer func() {
		s.publishTurnEvent(ctx, sessionID, learned, err, time.Since(started))
	}()

	prompt := s.activePrompt(ctx)

	if ShouldLearn(input.Content, len(input.History) > 0) {
		rewritten, rewriteErr := s.editor.Rewrite(ctx, prompt, input.Content)
		if rewriteErr != nil {
			return nil, rewriteErr
		}
		if setErr := s.prompts.SetContent(s.promptName, rewritten); setErr != nil {
			return nil, setErr
		}
		if s.promptCache != nil {
			_ = s.promptCache.Set(ctx, s.promptName, rewritten)
		}
		// The rest of this turn must already see the new personality.
		prompt = rewritten
		learned = true
		log.Printf("active prompt %q rewritten from user correction", s.promptName)
	}

	if sessionID == "" {
		session := &model.ChatSession{
			ID:        uuid.NewString(),
			Title:     sessionTitle(input.Content),
			CreatedAt: time.Now(),
		}
		if createErr := s.sessions.Create(session); createErr != nil {
			return nil, createErr
		}
		sessionID = session.ID
	}

	userMessage := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      "user",
		Content:   input.Content,
		CreatedAt: time.Now(),
	}
	if createErr := s.messages.Create(userMessage); createErr != nil {
		return nil, createErr
	}

	promptMessages := make([]ai.ChatMessage, 0, len(input.History)+2)
	promptMessages = append(promptMessages, ai.ChatMessage{Role: "system", Content: prompt})
	promptMessages = append(promptMessages, input.History...)
	promptMessages = append(promptMessages, ai.ChatMessage{Role: "user", Content: input.Content})

	reply, completeErr := s.llm.Complete(ctx, s.replyLLM, promptMessages)
	if completeErr != nil {
		return nil, completeErr
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = "The model returned an empty response."
	}

	assistantMessage := &model.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      "assistant",
		Content:   reply,
		CreatedAt: time.Now(),
	}
	if createErr := s.messages.Create(assistantMessage); createErr != nil {
		return nil, createErr
	}

	return &TurnResult{Reply: reply, SessionID: sessionID}, nil
}

func (s *AssistantService) ListSessions() ([]model.ChatSession, error) {
	return s.sessions.ListNewestFirst()
}

func (s *AssistantService) SessionMessages(sessionID string) ([]model.ChatMessage, error) {
	return s.messages.ListBySessionID(sessionID)
}

func (s *AssistantService) ClearHistory() error {
	return s.sessions.DeleteAll()
}

// activePrompt never fails: any cache or store problem falls back to the
// hardcoded prompt so a missing row cannot take the assistant down.
func (s *AssistantService) activePrompt(ctx context.Context) string {
	if s.promptCache != nil {
		if content, hit, err := s.promptCache.Get(ctx, s.promptName); err == nil && hit && content != "" {
			return content
		}
	}

	content, err := s.prompts.GetContent(s.promptName)
	if err != nil || strings.TrimSpace(content) == "" {
		return s.fallbackPrompt
	}
	if s.promptCache != nil {
		_ = s.promptCache.Set(ctx, s.promptName, content)
	}
	return content
}

func (s *AssistantService) publishTurnEvent(ctx context.Context, sessionID string, learned bool, turnErr error, elapsed time.Duration) {
	if s.events == nil {
		return
	}
	outcome := "ok"
	if turnErr != nil {
		outcome = "failed"
	}
	event := model.TurnEvent{
		SessionID:  sessionID,
		Learned:    learned,
		Outcome:    outcome,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("publish turn event failed: %v", err)
	}
}

func sessionTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= sessionTitleLimit {
		return content
	}
	return fmt.Sprintf("%s...", string(runes[:sessionTitleLimit]))
}
