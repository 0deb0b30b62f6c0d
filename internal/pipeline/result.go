package pipeline

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/saypipe/saypipe/internal/fault"
)

// Stage is a point in the request lifecycle. A Result carries the terminal
// stage the request reached.
type Stage string

const (
	StageReceived  Stage = "RECEIVED"
	StageChunked   Stage = "CHUNKED"
	StageCacheHit  Stage = "CACHE_HIT"
	StageMerged    Stage = "MERGED"
	StageCached    Stage = "CACHED"
	StageDelivered Stage = "DELIVERED"
	StageFailed    Stage = "FAILED"
)

// Result describes the outcome of one request. Fault is set only on
// terminal failure; CacheFault and PlaybackFault report degraded but
// non-fatal outcomes alongside a delivered artifact.
type Result struct {
	Stage Stage
	Key   string
	Voice string

	CacheHit       bool
	Segments       int
	SynthesisCalls int

	ArtifactPath string
	ArtifactSize int64

	Played        bool
	Fault         *fault.Fault
	CacheFault    *fault.Fault
	PlaybackFault *fault.Fault
}

// OK reports whether an artifact was produced.
func (r Result) OK() bool {
	return r.Stage != StageFailed
}

// Status renders a one-line human summary of the outcome.
func (r Result) Status() string {
	if r.Stage == StageFailed {
		return fmt.Sprintf("failed: %v", r.Fault)
	}
	size := humanize.Bytes(uint64(r.ArtifactSize))
	if r.CacheHit {
		return fmt.Sprintf("delivered from cache (%s, voice %s)", size, r.Voice)
	}
	s := fmt.Sprintf("delivered %d segment(s), %d synthesized (%s, voice %s)",
		r.Segments, r.SynthesisCalls, size, r.Voice)
	if r.CacheFault != nil {
		s += "; artifact not cached"
	}
	if r.PlaybackFault != nil {
		s += fmt.Sprintf("; playback failed: %v", r.PlaybackFault.Cause)
	}
	return s
}

// failed builds the terminal Result for a request that produced no artifact.
func failed(f *fault.Fault) Result {
	return Result{Stage: StageFailed, Fault: f}
}
