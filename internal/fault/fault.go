// Package fault defines the error taxonomy shared by the speech pipeline.
// Every terminal failure carries a code identifying what went wrong and the
// stage that produced it, so callers never see a bare generic error.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies a failure class.
type Code string

const (
	// CodeInvalidInput covers empty text and other caller mistakes. Fatal.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeUnsupportedVoice means the voice identifier is not in the catalog. Fatal.
	CodeUnsupportedVoice Code = "UNSUPPORTED_VOICE"

	// CodeNetwork covers transient synthesis transport failures. Retryable.
	CodeNetwork Code = "NETWORK"

	// CodeRemoteRejected means the remote accepted the connection but refused
	// the request. Not retryable; retrying would produce the same refusal.
	CodeRemoteRejected Code = "REMOTE_REJECTED"

	// CodeCacheIO covers disk failures in the cache store. Non-fatal for
	// writes (the pipeline still delivers), a forced miss for reads.
	CodeCacheIO Code = "CACHE_IO"

	// CodeMerge covers artifact assembly failures.
	CodeMerge Code = "MERGE"

	// CodePlayback covers playback collaborator failures. Reported
	// separately from synthesis; never rolls back a cache write.
	CodePlayback Code = "PLAYBACK"
)

// Stage names the pipeline stage a fault surfaced from.
type Stage string

const (
	StageValidate  Stage = "validate"
	StageChunk     Stage = "chunk"
	StageSynthesis Stage = "synthesis"
	StageMerge     Stage = "merge"
	StageCache     Stage = "cache"
	StagePlayback  Stage = "playback"
)

// Fault is an error with a classification code and originating stage.
type Fault struct {
	Code    Code
	Stage   Stage
	Message string
	Cause   error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s/%s: %s: %v", f.Stage, f.Code, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s/%s: %s", f.Stage, f.Code, f.Message)
}

// Unwrap returns the underlying error.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Retryable reports whether the operation that produced the fault may be
// retried. Only transient network failures qualify.
func (f *Fault) Retryable() bool {
	return f.Code == CodeNetwork
}

// New creates a fault with the given classification.
func New(code Code, stage Stage, message string, cause error) *Fault {
	return &Fault{Code: code, Stage: stage, Message: message, Cause: cause}
}

// From extracts a *Fault from err's chain, or nil if there is none.
func From(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// Retryable reports whether err is classified as retryable. Unclassified
// errors are treated as retryable so transport errors wrapped by lower
// layers are not silently made terminal.
func Retryable(err error) bool {
	if f := From(err); f != nil {
		return f.Retryable()
	}
	return true
}
