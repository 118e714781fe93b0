package repository

import (
	"fmt"

	"gorm.io/gorm"

	"issa-assistant/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.ChatSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListNewestFirst() ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	if err := r.db.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return sessions, nil
}

// DeleteAll removes every session together with its messages. Deleting an
// already-empty store is not an error.
func (r *SessionRepository) DeleteAll() error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.ChatSession{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete sessions failed: %w", err)
	}
	return nil
}
