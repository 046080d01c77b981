package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"talentvoice/interview-analyzer/internal/logger"
	"talentvoice/interview-analyzer/internal/models"
	"talentvoice/interview-analyzer/internal/repositories"
)

type mediaCategory int

const (
	mediaAudio mediaCategory = iota
	mediaVideo
)

// PipelineService sequences the recording pipeline: fingerprint dedup,
// transcode, upload, then background transcription and scoring. Stage
// failures soft-fail the recording back to pending so the uploaded artifact
// is never lost; only an unsupported media type is rejected outright.
type PipelineService interface {
	// ProcessUpload runs the synchronous stages and dispatches the rest. The
	// returned channel completes when transcription and scoring finish; it is
	// nil when the pipeline short-circuited (duplicate or soft failure).
	ProcessUpload(ctx context.Context, data []byte, filename, mimeType, candidateName string) (*models.Recording, <-chan error, error)
	// ProcessExternalSource downloads the file from the cloud drive and runs
	// the full pipeline inline, returning the final recording state.
	ProcessExternalSource(ctx context.Context, fileID, fileName, accessToken string) (*models.Recording, error)
}

type pipelineService struct {
	recordings    repositories.RecordingRepository
	transcoder    Transcoder
	objectStore   ObjectStore
	transcription TranscriptionService
	scoring       ScoringService
	drive         DriveService
	dispatcher    Dispatcher
	log           *logrus.Entry
}

func NewPipelineService(
	recordings repositories.RecordingRepository,
	transcoder Transcoder,
	objectStore ObjectStore,
	transcription TranscriptionService,
	scoring ScoringService,
	drive DriveService,
	dispatcher Dispatcher,
) PipelineService {
	return &pipelineService{
		recordings:    recordings,
		transcoder:    transcoder,
		objectStore:   objectStore,
		transcription: transcription,
		scoring:       scoring,
		drive:         drive,
		dispatcher:    dispatcher,
		log:           logger.ForModule("pipeline"),
	}
}

func (p *pipelineService) ProcessUpload(ctx context.Context, data []byte, filename, mimeType, candidateName string) (*models.Recording, <-chan error, error) {
	fingerprint := contentFingerprint(data)
	log := p.log.WithField("fingerprint", fingerprint[:12])

	existing, err := p.recordings.FindByFingerprint(fingerprint)
	if err != nil {
		return nil, nil, err
	}

	// Idempotent short-circuit: identical bytes already scored.
	if existing != nil && existing.Status == models.StatusScored {
		log.Info("duplicate of scored recording, returning prior result")
		return existing, nil, nil
	}

	// Rejected before any I/O or claim; no partial state.
	category, err := classifyMedia(mimeType, filename)
	if err != nil {
		return nil, nil, err
	}

	rec, claimed, err := p.claim(existing, fingerprint, filename, candidateName)
	if err != nil {
		return nil, nil, err
	}
	if !claimed {
		// A concurrent submission of the same bytes holds the claim.
		log.Info("fingerprint already claimed, returning in-flight recording")
		return rec, nil, nil
	}

	audio := data
	audioName := filename
	if category == mediaVideo {
		audio, err = p.transcoder.ExtractAudio(ctx, data, filename)
		if err != nil {
			return p.softFail(rec, err), nil, nil
		}
		audioName = replaceExt(filename, ".wav")
	} else {
		audioName = normalizeAudioName(filename, mimeType)
	}

	stored, err := p.objectStore.UploadAudio(ctx, audio, audioName)
	if err != nil {
		return p.softFail(rec, err), nil, nil
	}

	if err := p.recordings.UpdateStorage(rec.ID, stored.Key, stored.RetrievalURL); err != nil {
		return p.softFail(rec, err), nil, nil
	}
	rec.StoredFileName = stored.Key
	rec.RetrievalURL = stored.RetrievalURL

	recID := rec.ID
	audioURL := stored.RetrievalURL
	done := p.dispatcher.Dispatch("analyze-"+recID.String(), func(taskCtx context.Context) error {
		return p.analyze(taskCtx, recID, audioURL, candidateName)
	})

	return rec, done, nil
}

func (p *pipelineService) ProcessExternalSource(ctx context.Context, fileID, fileName, accessToken string) (*models.Recording, error) {
	data, err := p.drive.Download(ctx, fileID, accessToken)
	if err != nil {
		return nil, err
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))

	rec, done, err := p.ProcessUpload(ctx, data, fileName, mimeType, "")
	if err != nil {
		return nil, err
	}

	// The drive-sourced path awaits the full pipeline inline. Stage errors
	// are already persisted as soft failures on the row.
	if done != nil {
		<-done
	}

	return p.recordings.FindByID(rec.ID)
}

// claim takes the transactional processing claim for this fingerprint: a new
// row is inserted with insert-if-absent semantics, an existing pending row is
// claimed with a compare-and-set to processing.
func (p *pipelineService) claim(existing *models.Recording, fingerprint, filename, candidateName string) (*models.Recording, bool, error) {
	if existing == nil {
		rec := &models.Recording{
			ID:                 uuid.New(),
			ContentFingerprint: fingerprint,
			SourceFileName:     filename,
			CandidateName:      candidateName,
			Status:             models.StatusProcessing,
			CreatedAt:          time.Now(),
			UpdatedAt:          time.Now(),
		}

		claimed, err := p.recordings.ClaimNew(rec)
		if err != nil {
			return nil, false, err
		}
		if !claimed {
			other, err := p.recordings.FindByFingerprint(fingerprint)
			if err != nil {
				return nil, false, err
			}
			return other, false, nil
		}
		return rec, true, nil
	}

	claimed, err := p.recordings.ClaimReprocess(existing.ID)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		current, err := p.recordings.FindByID(existing.ID)
		if err != nil {
			return nil, false, err
		}
		return current, false, nil
	}

	existing.Status = models.StatusProcessing
	return existing, true, nil
}

// analyze runs the transcription and scoring stages for a claimed recording
// and persists the terminal result in a single update. Both a terminal
// transcription failure and a scoring parse failure soft-fail the row back to
// pending: the artifact is durable, so every failure stays reprocessable.
func (p *pipelineService) analyze(ctx context.Context, recID uuid.UUID, audioURL, candidateName string) error {
	log := p.log.WithField("recording_id", recID)

	result, err := p.transcription.Transcribe(ctx, audioURL)
	if err != nil {
		log.WithError(err).Error("transcription stage failed")
		if dbErr := p.recordings.UpdateSoftFail(recID, err.Error()); dbErr != nil {
			log.WithError(dbErr).Error("failed to persist soft failure")
		}
		return err
	}

	scores, err := p.scoring.ScoreTranscript(ctx, result.Text, candidateName)
	if err != nil {
		log.WithError(err).Error("scoring stage failed")
		if dbErr := p.recordings.UpdateSoftFail(recID, err.Error()); dbErr != nil {
			log.WithError(dbErr).Error("failed to persist soft failure")
		}
		return err
	}

	if err := p.recordings.UpdateScored(recID, result.Text, result.Metrics, scores); err != nil {
		log.WithError(err).Error("failed to persist scored result")
		return err
	}

	log.WithField("overall", scores.OverallCommunicationScore).Info("recording scored")
	return nil
}

func (p *pipelineService) softFail(rec *models.Recording, cause error) *models.Recording {
	p.log.WithError(cause).WithField("recording_id", rec.ID).Warn("pipeline soft-failed, recording left reprocessable")

	if err := p.recordings.UpdateSoftFail(rec.ID, cause.Error()); err != nil {
		p.log.WithError(err).Error("failed to persist soft failure")
	}

	msg := cause.Error()
	rec.Status = models.StatusPending
	rec.ErrorMessage = &msg
	return rec
}

func contentFingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

var (
	videoExtensions = map[string]bool{
		".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
	}
	audioExtensions = map[string]string{
		".wav": "audio/wav", ".mp3": "audio/mpeg", ".m4a": "audio/mp4",
		".ogg": "audio/ogg", ".flac": "audio/flac",
	}
)

func classifyMedia(mimeType, filename string) (mediaCategory, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "video/"):
		return mediaVideo, nil
	case strings.HasPrefix(mt, "audio/"):
		return mediaAudio, nil
	}

	// Fall back to the extension when the MIME type is absent or generic.
	ext := strings.ToLower(filepath.Ext(filename))
	if videoExtensions[ext] {
		return mediaVideo, nil
	}
	if _, ok := audioExtensions[ext]; ok {
		return mediaAudio, nil
	}

	reported := mt
	if reported == "" {
		reported = ext
	}
	return 0, &UnsupportedTypeError{MimeType: reported}
}

func replaceExt(filename, newExt string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + newExt
}

func normalizeAudioName(filename, mimeType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := audioExtensions[ext]; ok {
		return replaceExt(filename, ext)
	}

	// Known MIME type but unusual extension: pick the canonical one.
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	for canonical, registered := range audioExtensions {
		if registered == mt {
			return replaceExt(filename, canonical)
		}
	}
	return replaceExt(filename, ".wav")
}
