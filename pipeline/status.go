package pipeline

import (
	"errors"

	"github.com/soundsentry/soundsentry/audio"
	"github.com/soundsentry/soundsentry/classify"
)

// Sentinels for the cycle failure taxonomy. Cycle.Err wraps one of these so
// callers can classify with errors.Is.
var (
	// ErrAcquisition marks a hardware read error or timeout. The loop
	// retries capture after the configured backoff.
	ErrAcquisition = errors.New("audio acquisition failed")

	// ErrShapeMismatch marks a feature tensor that doesn't match the
	// engine's expected shape or type. The cycle is aborted before any data
	// crosses the boundary.
	ErrShapeMismatch = errors.New("feature tensor shape mismatch")

	// ErrInference marks an engine invocation that failed internally.
	ErrInference = errors.New("inference failed")
)

// Status is the outcome kind of one capture cycle.
type Status int

const (
	// StatusClassified: the full capture->validate->extract->infer->classify
	// chain completed and Result is set.
	StatusClassified Status = iota

	// StatusSkippedSilence: the validator rejected the frame. Not an error;
	// silence is an expected, frequent outcome.
	StatusSkippedSilence

	// StatusAcquisitionFailed: the audio source reported an error.
	StatusAcquisitionFailed

	// StatusShapeMismatch: the engine's tensor contract doesn't fit the
	// configured feature layout.
	StatusShapeMismatch

	// StatusInferenceFailed: the engine accepted the tensor but failed to
	// score it.
	StatusInferenceFailed
)

func (s Status) String() string {
	switch s {
	case StatusClassified:
		return "classified"
	case StatusSkippedSilence:
		return "skipped-silence"
	case StatusAcquisitionFailed:
		return "acquisition-failed"
	case StatusShapeMismatch:
		return "shape-mismatch"
	case StatusInferenceFailed:
		return "inference-failed"
	default:
		return "unknown"
	}
}

// Cycle reports the outcome of one capture cycle. Result is non-nil only for
// StatusClassified; Err is non-nil only for the three failure statuses.
type Cycle struct {
	Status Status
	Stats  audio.FrameStats
	Result *classify.Result
	Err    error
}

// Presenter receives every cycle outcome. Display format is the
// collaborator's business; the pipeline only guarantees it is called once
// per cycle, in cycle order.
type Presenter interface {
	Present(c Cycle)
}
