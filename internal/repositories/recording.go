package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"talentvoice/interview-analyzer/internal/models"
)

type RecordingRepository interface {
	Create(rec *models.Recording) error
	// ClaimNew inserts the recording only if no row holds its fingerprint yet.
	// Returns false when a concurrent submission already claimed it.
	ClaimNew(rec *models.Recording) (bool, error)
	// ClaimReprocess moves an existing row pending -> processing. Returns
	// false when another submission holds the claim.
	ClaimReprocess(id uuid.UUID) (bool, error)
	FindByID(id uuid.UUID) (*models.Recording, error)
	FindByFingerprint(fingerprint string) (*models.Recording, error)
	FindAll(limit int) ([]models.Recording, error)
	UpdateStorage(id uuid.UUID, storedFileName, retrievalURL string) error
	// UpdateScored persists transcript, metrics and scores together with the
	// terminal scored status in a single update.
	UpdateScored(id uuid.UUID, transcript string, metrics *models.SpeechMetrics, scores *models.CommunicationScores) error
	// UpdateSoftFail returns the row to pending with an error message so a
	// future submission of the same bytes can reprocess it.
	UpdateSoftFail(id uuid.UUID, errorMsg string) error
	Delete(id uuid.UUID) error
}

type recordingRepository struct {
	db *gorm.DB
}

func NewRecordingRepository(db *gorm.DB) RecordingRepository {
	return &recordingRepository{db: db}
}

func (r *recordingRepository) Create(rec *models.Recording) error {
	if err := r.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	return nil
}

func (r *recordingRepository) ClaimNew(rec *models.Recording) (bool, error) {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_fingerprint"}},
		DoNothing: true,
	}).Create(rec)

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim recording: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *recordingRepository) ClaimReprocess(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.Recording{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim reprocess: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *recordingRepository) FindByID(id uuid.UUID) (*models.Recording, error) {
	var rec models.Recording
	if err := r.db.Where("id = ?", id).First(&rec).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("recording %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find recording: %w", err)
	}
	return &rec, nil
}

func (r *recordingRepository) FindByFingerprint(fingerprint string) (*models.Recording, error) {
	var rec models.Recording
	err := r.db.Where("content_fingerprint = ?", fingerprint).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find recording by fingerprint: %w", err)
	}
	return &rec, nil
}

func (r *recordingRepository) FindAll(limit int) ([]models.Recording, error) {
	var recs []models.Recording
	err := r.db.
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return recs, nil
}

func (r *recordingRepository) UpdateStorage(id uuid.UUID, storedFileName, retrievalURL string) error {
	result := r.db.Model(&models.Recording{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stored_file_name": storedFileName,
			"retrieval_url":    retrievalURL,
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update storage reference: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("recording not found")
	}
	return nil
}

func (r *recordingRepository) UpdateScored(id uuid.UUID, transcript string, metrics *models.SpeechMetrics, scores *models.CommunicationScores) error {
	result := r.db.Model(&models.Recording{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.StatusScored,
			"transcript_text": transcript,
			"speech_metrics":  metrics,
			"scores":          scores,
			"error_message":   nil,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update scored result: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("recording not found")
	}
	return nil
}

func (r *recordingRepository) UpdateSoftFail(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.Recording{}).
		Where("id = ? AND status <> ?", id, models.StatusScored).
		Updates(map[string]interface{}{
			"status":        models.StatusPending,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update soft fail: %w", result.Error)
	}
	return nil
}

func (r *recordingRepository) Delete(id uuid.UUID) error {
	if err := r.db.Delete(&models.Recording{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	return nil
}
