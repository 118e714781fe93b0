package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issa-assistant/internal/ai"
	"issa-assistant/internal/model"
)

const (
	testPromptName = "visa_assistant"
	testFallback   = "You are a friendly visa consultant 🧭"
)

type fakePromptStore struct {
	content map[string]string
	getErr  error
	setErr  error
}

func (f *fakePromptStore) GetContent(name string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	content, ok := f.content[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return content, nil
}

func (f *fakePromptStore) SetContent(name, content string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.content[name] = content
	return nil
}

type memDB struct {
	sessions []model.ChatSession
	messages []model.ChatMessage
}

type fakeSessionStore struct {
	db        *memDB
	createErr error
}

func (f *fakeSessionStore) Create(session *model.ChatSession) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.db.sessions = append(f.db.sessions, *session)
	return nil
}

func (f *fakeSessionStore) ListNewestFirst() ([]model.ChatSession, error) {
	out := make([]model.ChatSession, 0, len(f.db.sessions))
	for i := len(f.db.sessions) - 1; i >= 0; i-- {
		out = append(out, f.db.sessions[i])
	}
	return out, nil
}

func (f *fakeSessionStore) DeleteAll() error {
	f.db.sessions = nil
	f.db.messages = nil
	return nil
}

type fakeMessageStore struct {
	db        *memDB
	createErr error
}

func (f *fakeMessageStore) Create(message *model.ChatMessage) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.db.messages = append(f.db.messages, *message)
	return nil
}

func (f *fakeMessageStore) ListBySessionID(sessionID string) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for _, m := range f.db.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

type llmCall struct {
	cfg      ai.ChatConfig
	messages []ai.ChatMessage
}

type llmResponse struct {
	reply string
	err   error
}

type fakeLLM struct {
	queue []llmResponse
	calls []llmCall
}

func (f *fakeLLM) Complete(_ context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.calls = append(f.calls, llmCall{cfg: cfg, messages: messages})
	if len(f.queue) == 0 {
		return "", errors.New("unexpected completion call")
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next.reply, next.err
}

type fakeEventPublisher struct {
	events []model.TurnEvent
}

func (f *fakeEventPublisher) Publish(_ context.Context, event model.TurnEvent) error {
	f.events = append(f.events, event)
	return nil
}

type serviceFixture struct {
	service  *AssistantService
	prompts  *fakePromptStore
	db       *memDB
	llm      *fakeLLM
	events   *fakeEventPublisher
	sessions *fakeSessionStore
	messages *fakeMessageStore
}

func newServiceFixture(llm *fakeLLM) *serviceFixture {
	prompts := &fakePromptStore{content: map[string]string{testPromptName: "You are the friendly Main Character visa consultant 🧭"}}
	db := &memDB{}
	sessions := &fakeSessionStore{db: db}
	messages := &fakeMessageStore{db: db}
	events := &fakeEventPublisher{}

	service := NewAssistantService(
		prompts,
		nil,
		sessions,
		messages,
		llm,
		events,
		testPromptName,
		testFallback,
		ai.ChatConfig{BaseURL: "http://llm.local", APIKey: "k", Model: "llama-3.3-70b-versatile", Temperature: 0.9},
	)

	return &serviceFixture{
		service:  service,
		prompts:  prompts,
		db:       db,
		llm:      llm,
		events:   events,
		sessions: sessions,
		messages: messages,
	}
}

func TestHandleTurnCreatesSessionAndPersistsInOrder(t *testing.T) {
	llm := &fakeLLM{queue: []llmResponse{{reply: "G'day! Happy to help ✨"}}}
	fx := newServiceFixture(llm)

	result, err := fx.service.HandleTurn(context.Background(), TurnInput{
		Content: "Hello there, I need help",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "G'day! Happy to help ✨", result.Reply)
	assert.NotEmpty(t, result.SessionID)

	require.Len(t, fx.db.sessions, 1)
	assert.Equal(t, result.SessionID, fx.db.sessions[0].ID)
	assert.Equal(t, "Hello there, I need help", fx.db.sessions[0].Title)

	require.Len(t, fx.db.messages, 2)
	assert.Equal(t, "user", fx.db.messages[0].Role)
	assert.Equal(t, "Hello there, I need help", fx.db.messages[0].Content)
	assert.Equal(t, "assistant", fx.db.messages[1].Role)
	assert.Equal(t, "G'day! Happy to help ✨", fx.db.messages[1].Content)
	for _, m := range fx.db.messages {
		assert.Equal(t, result.SessionID, m.SessionID)
	}
}

func TestHandleTurnReusesExistingSession(t *testing.T) {
	llm := &fakeLLM{queue: []llmResponse{{reply: "Sure thing 🚀"}}}
	fx := newServiceFixture(llm)

	result, err := fx.service.HandleTurn(context.Background(), TurnInput{
		Content:   "what documents do I need?",
		SessionID: "existing-session-id",
	})
	require.NoError(t, err)

	assert.Equal(t, "existing-session-id", result.SessionID)
	assert.Empty(t, fx.db.sessions, "no session row should be created when an id is supplied")
	require.Len(t, fx.db.messages, 2)
	assert.Equal(t, "existing-session-id", fx.db.messages[0].SessionID)
}

func TestHandleTurnRewritesPromptBeforeReply(t *testing.T) {
	rewritten := "You are the friendly Main Character visa consultant for Issa Compass 🧭. The 482 visa costs 2000 AUD. Never mention being an AI."
	llm := &fakeLLM{queue: []llmResponse{
		{reply: rewritten},
		{reply: "Noted, it's 2000 AUD! ✨"},
	}}
	fx := newServiceFixture(llm)

	history := []ai.ChatMessage{
		{Role: "user", Content: "how much is the 482 visa?"},
		{Role: "assistant", Content: "1500 AUD 🧭"},
	}
	result, err := fx.service.HandleTurn(context.Background(), TurnInput{
		Content: "Actually it's 2000 AUD, not 1500",
		History: history,
	})
	require.NoError(t, err)

	assert.Equal(t, rewritten, fx.prompts.content[testPromptName], "store must hold the rewritten prompt")

	require.Len(t, fx.llm.calls, 2)

	editorCall := fx.llm.calls[0]
	require.Len(t, editorCall.messages, 1)
	assert.Equal(t, "user", editorCall.messages[0].Role)
	assert.Contains(t, editorCall.messages[0].Content, "Actually it's 2000 AUD, not 1500")
	assert.Contains(t, editorCall.messages[0].Content, "Never mention being an AI.")
	assert.Zero(t, editorCall.cfg.Temperature, "editor call uses the provider default temperature")

	replyCall := fx.llm.calls[1]
	assert.InDelta(t, 0.9, replyCall.cfg.Temperature, 1e-9)
	require.NotEmpty(t, replyCall.messages)
	assert.Equal(t, "system", replyCall.messages[0].Role)
	assert.Equal(t, rewritten, replyCall.messages[0].Content, "same turn must already use the rewritten prompt")
	require.Len(t, replyCall.messages, len(history)+2)
	assert.Equal(t, history[0], replyCall.messages[1])
	assert.Equal(t, history[1], replyCall.messages[2])
	assert.Equal(t, ai.ChatMessage{Role: "user", Content: "Actually it's 2000 AUD, not 1500"}, replyCall.messages[3])

	assert.Equal(t, "Noted, it's 2000 AUD! ✨", result.Reply)
}

func TestHandleTurnRewriteFailureAbortsTurn(t *testing.T) {
	llm := &fakeLLM{queue: []llmResponse{{err: errors.New("editor model unavailable")}}}
	fx := newServiceFixture(llm)
	original := fx.prompts.content[testPromptName]

	_, err := fx.service.HandleTurn(context.Background(), TurnInput{
		Content: "no, the price is 2000",
		History: []ai.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)

	assert.Equal(t, original, fx.prompts.content[testPromptName], "a failed rewrite must leave the prompt unmodified")
	assert.Empty(t, fx.db.sessions)
	assert.Empty(t, fx.db.messages)
}

func TestHandleTurnGenerationFailureKeepsUserMessage(t *testing.T) {
	llm := &fakeLLM{queue: []llmResponse{{err: errors.New("model overloaded")}}}
	fx := newServiceFixture(llm)

	_, err := fx.service.HandleTurn(context.Background(), TurnInput{
		Content: "Hello there, I need help",
	})
	require.Error(t, err)

	require.Len(t, fx.db.messages, 1, "the user message stays persisted after a failed generation")
	assert.Equal(t, "user", fx.db.messages[0].Role)
}

func TestHandleTurnFallsBackOnPromptFetchFailure(t *testing.T) {
	llm := &fakeLLM{queue: []llmResponse{{reply: "hello! 🧭"}}}
	fx := newServiceFixture(llm)
	fx.prompts.getErr = errors.New("store unreachable")

	_, err := fx.service.HandleTurn(context.Background(), TurnInput{Content: "hey there!"})
	require.NoError(t, err, "prompt fetch failure is never fatal")

	require.Len(t, fx.llm.calls, 1)
	assert.Equal(t, testFallback, fx.llm.calls[0].messages[0].Content)
}

func TestHandleTurnEmptyReplySubstituted(t *testing.T) {
	llm := &fakeLLM{queue: []llmResponse{{reply: "   \n"}}}
	fx := newServiceFixture(llm)

	result, err := fx.service.HandleTurn(context.Background(), TurnInput{Content: "hey there!"})
	require.NoError(t, err)

	assert.Equal(t, "The model returned an empty response.", result.Reply)
	assert.Equal(t, result.Reply, fx.db.messages[1].Content)
}

func TestHandleTurnPublishesTurnEvents(t *testing.T) {
	rewritten := "rewritten prompt 🧭 Never mention being an AI."
	llm := &fakeLLM{queue: []llmResponse{
		{reply: rewritten},
		{reply: "done ✨"},
	}}
	fx := newServiceFixture(llm)

	result, err := fx.service.HandleTurn(context.Background(), TurnInput{
		Content: "Actually it's 2000 AUD, not 1500",
		History: []ai.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	require.Len(t, fx.events.events, 1)
	event := fx.events.events[0]
	assert.Equal(t, result.SessionID, event.SessionID)
	assert.True(t, event.Learned)
	assert.Equal(t, "ok", event.Outcome)

	failing := &fakeLLM{queue: []llmResponse{{err: errors.New("boom")}}}
	fx2 := newServiceFixture(failing)
	_, err = fx2.service.HandleTurn(context.Background(), TurnInput{Content: "hey there!"})
	require.Error(t, err)
	require.Len(t, fx2.events.events, 1)
	assert.Equal(t, "failed", fx2.events.events[0].Outcome)
	assert.False(t, fx2.events.events[0].Learned)
}

func TestClearHistoryIsIdempotent(t *testing.T) {
	llm := &fakeLLM{queue: []llmResponse{{reply: "hi ✨"}}}
	fx := newServiceFixture(llm)

	_, err := fx.service.HandleTurn(context.Background(), TurnInput{Content: "hey there!"})
	require.NoError(t, err)
	require.NotEmpty(t, fx.db.sessions)

	require.NoError(t, fx.service.ClearHistory())
	assert.Empty(t, fx.db.sessions)
	assert.Empty(t, fx.db.messages)

	require.NoError(t, fx.service.ClearHistory(), "clearing an empty store is a valid state")
}
