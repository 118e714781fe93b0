package repository

import (
	"fmt"

	"gorm.io/gorm"

	"issa-assistant/internal/model"
)

type PromptRepository struct {
	db *gorm.DB
}

func NewPromptRepository(db *gorm.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// GetContent returns the stored prompt content for name. Absence is an error;
// callers decide whether to substitute a fallback.
func (r *PromptRepository) GetContent(name string) (string, error) {
	var prompt model.Prompt
	if err := r.db.Where("name = ?", name).First(&prompt).Error; err != nil {
		return "", fmt.Errorf("get prompt failed: %w", err)
	}
	return prompt.Content, nil
}

// SetContent overwrites the prompt row in full, creating it if missing.
func (r *PromptRepository) SetContent(name, content string) error {
	if err := r.db.Save(&model.Prompt{Name: name, Content: content}).Error; err != nil {
		return fmt.Errorf("set prompt failed: %w", err)
	}
	return nil
}
