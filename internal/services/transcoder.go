package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"talentvoice/interview-analyzer/internal/logger"
)

// CommandRunner executes an external command and returns its combined output.
// Injected so tests can substitute a fake ffmpeg.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Transcoder extracts a mono 16kHz 16-bit PCM audio stream from an arbitrary
// video container. ffmpeg requires filesystem I/O, so both sides of the
// conversion go through uniquely named temp files that are removed on every
// path.
type Transcoder interface {
	ExtractAudio(ctx context.Context, video []byte, originalName string) ([]byte, error)
}

type ffmpegTranscoder struct {
	ffmpegPath string
	tempDir    string
	runner     CommandRunner
	log        *logrus.Entry
}

func NewTranscoder(ffmpegPath, tempDir string) Transcoder {
	return &ffmpegTranscoder{
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
		runner:     execRunner{},
		log:        logger.ForModule("transcoder"),
	}
}

// NewTranscoderWithRunner is used by tests to substitute the ffmpeg process.
func NewTranscoderWithRunner(ffmpegPath, tempDir string, runner CommandRunner) Transcoder {
	return &ffmpegTranscoder{
		ffmpegPath: ffmpegPath,
		tempDir:    tempDir,
		runner:     runner,
		log:        logger.ForModule("transcoder"),
	}
}

func (t *ffmpegTranscoder) ExtractAudio(ctx context.Context, video []byte, originalName string) ([]byte, error) {
	if len(video) == 0 {
		return nil, &TranscodeError{Reason: "empty input"}
	}

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = ".mp4"
	}

	stem := fmt.Sprintf("transcode_%d_%s", time.Now().UnixNano(), uuid.New().String())
	inputPath := filepath.Join(t.tempDir, stem+ext)
	outputPath := filepath.Join(t.tempDir, stem+".wav")

	if err := os.WriteFile(inputPath, video, 0600); err != nil {
		return nil, &TranscodeError{Reason: "failed to write temp input", Err: err}
	}
	defer os.Remove(inputPath)
	defer os.Remove(outputPath)

	output, err := t.runner.Run(ctx, t.ffmpegPath,
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outputPath,
	)
	if err != nil {
		t.log.WithError(err).WithField("output", string(output)).Error("ffmpeg failed")
		return nil, &TranscodeError{Reason: "ffmpeg exited with error", Err: err}
	}

	audio, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &TranscodeError{Reason: "failed to read extracted audio", Err: err}
	}
	if len(audio) == 0 {
		return nil, &TranscodeError{Reason: "extracted audio is empty"}
	}

	t.log.WithFields(logrus.Fields{
		"source": originalName,
		"bytes":  len(audio),
	}).Info("audio extracted")

	return audio, nil
}
