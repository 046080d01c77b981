package services

import (
	"fmt"
	"time"
)

// UnsupportedTypeError rejects a submission whose MIME category is neither
// audio nor video. Raised before any I/O, so no partial state exists.
type UnsupportedTypeError struct {
	MimeType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported media type: %s", e.MimeType)
}

// TranscodeError signals a codec or subprocess failure during audio
// extraction. Not retried; the recording stays reprocessable.
type TranscodeError struct {
	Reason string
	Err    error
}

func (e *TranscodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transcode failed: %s", e.Reason)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// UploadError signals an object-store failure. Fatal for this attempt.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed for %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// TranscriptionFailure is the provider's explicit terminal failure for a
// submitted job.
type TranscriptionFailure struct {
	Message string
}

func (e *TranscriptionFailure) Error() string {
	return fmt.Sprintf("transcription failed: %s", e.Message)
}

// TimeoutError bounds the transcription polling loop: raised when the
// configured attempt count or deadline is exhausted before a terminal state.
type TimeoutError struct {
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transcription polling timed out after %d attempts (%s)", e.Attempts, e.Elapsed)
}

// ScoringParseError signals that model output could not be coerced to the
// expected JSON shape, even after fallback extraction.
type ScoringParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ScoringParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring parse failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("scoring parse failed: %s", e.Reason)
}

func (e *ScoringParseError) Unwrap() error { return e.Err }
