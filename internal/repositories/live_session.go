package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentvoice/interview-analyzer/internal/models"
)

type LiveSessionRepository interface {
	Create(session *models.LiveSession) error
	FindByID(id uuid.UUID) (*models.LiveSession, error)
	Save(session *models.LiveSession) error
}

type liveSessionRepository struct {
	db *gorm.DB
}

func NewLiveSessionRepository(db *gorm.DB) LiveSessionRepository {
	return &liveSessionRepository{db: db}
}

func (r *liveSessionRepository) Create(session *models.LiveSession) error {
	if err := r.db.Create(session).Error; err != nil {
		return fmt.Errorf("failed to create live session: %w", err)
	}
	return nil
}

func (r *liveSessionRepository) FindByID(id uuid.UUID) (*models.LiveSession, error) {
	var session models.LiveSession
	if err := r.db.Where("id = ?", id).First(&session).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("live session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find live session: %w", err)
	}
	return &session, nil
}

func (r *liveSessionRepository) Save(session *models.LiveSession) error {
	if err := r.db.Save(session).Error; err != nil {
		return fmt.Errorf("failed to save live session: %w", err)
	}
	return nil
}
