package app

import (
	"context"
	"fmt"
	"strings"

	"issa-assistant/internal/ai"
)

// learningTriggers are the substrings that mark a user message as a likely
// correction or new fact. The match is a cheap case-insensitive pre-filter,
// not NLP; false positives only cost one extra completion call.
var learningTriggers = []string{"no", "actually", "wrong", "correct", "2000", "instead", "is", "price"}

// ShouldLearn reports whether message warrants rewriting the active prompt.
// A brand-new conversation never triggers a rewrite: with no prior context
// there is nothing to correct.
func ShouldLearn(message string, historyNonEmpty bool) bool {
	if !historyNonEmpty {
		return false
	}
	lowered := strings.ToLower(message)
	for _, token := range learningTriggers {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// PromptEditor asks the completion model to fold a new fact into the current
// prompt. The three-part output structure (persona preamble, learned fact,
// closing disclaimer) is enforced by instruction only; the returned text is
// committed as-is.
type PromptEditor struct {
	llm CompletionClient
	cfg ai.ChatConfig
}

func NewPromptEditor(llm CompletionClient, cfg ai.ChatConfig) *PromptEditor {
	return &PromptEditor{llm: llm, cfg: cfg}
}

func (e *PromptEditor) Rewrite(ctx context.Context, currentPrompt, newFact string) (string, error) {
	instruction := fmt.Sprintf(
		"CURRENT SYSTEM PROMPT: %s\n"+
			"NEW FACT TO LEARN: %s\n\n"+
			"TASK: Rewrite the system prompt. You MUST follow this format exactly:\n"+
			"1. START with the personality: 'You are the friendly Main Character visa consultant for Issa Compass 🧭. Use lots of emojis (🇦🇺, ✨, 🚀) and a WhatsApp-style tone.'\n"+
			"2. INCLUDE the new factual info learned.\n"+
			"3. END with: 'Never mention being an AI.'\n\n"+
			"STRICT RULE: Do NOT return a boring prompt. If the new prompt has no emojis, you failed. Return ONLY the text for the new prompt.",
		currentPrompt,
		newFact,
	)

	rewritten, err := e.llm.Complete(ctx, e.cfg, []ai.ChatMessage{{Role: "user", Content: instruction}})
	if err != nil {
		return "", fmt.Errorf("rewrite prompt failed: %w", err)
	}
	return rewritten, nil
}
