// Package pipeline orchestrates the speech request flow: segmentation,
// cache lookup, retried synthesis, merge, cache store, and handoff to the
// playback collaborator.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/saypipe/saypipe/internal/audio"
	"github.com/saypipe/saypipe/internal/cache"
	"github.com/saypipe/saypipe/internal/chunk"
	"github.com/saypipe/saypipe/internal/fault"
	"github.com/saypipe/saypipe/internal/merge"
	"github.com/saypipe/saypipe/internal/retry"
	"github.com/saypipe/saypipe/internal/synth"
)

// DefaultMaxInFlight bounds concurrent synthesis calls within one request.
const DefaultMaxInFlight = 3

// Pipeline composes the speech-request components. It is safe for
// concurrent use; the cache store serializes its own mutations.
type Pipeline struct {
	chunker     *chunk.Chunker
	store       *cache.Store
	client      synth.Client
	retrier     *retry.Executor
	merger      merge.Merger
	player      audio.Player
	catalog     *synth.Catalog
	maxInFlight int
	logger      *log.Logger
}

// Deps carries the pipeline's collaborators. Chunker, store, client,
// retrier, and merger are required; a nil player disables delivery
// playback and a nil catalog accepts any voice the remote accepts.
type Deps struct {
	Chunker     *chunk.Chunker
	Store       *cache.Store
	Client      synth.Client
	Retrier     *retry.Executor
	Merger      merge.Merger
	Player      audio.Player
	Catalog     *synth.Catalog
	MaxInFlight int
	Logger      *log.Logger
}

// New validates the dependency set and builds a Pipeline.
func New(deps Deps) (*Pipeline, error) {
	if deps.Chunker == nil {
		return nil, fmt.Errorf("chunker cannot be nil")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("cache store cannot be nil")
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("synthesis client cannot be nil")
	}
	if deps.Retrier == nil {
		return nil, fmt.Errorf("retry executor cannot be nil")
	}
	if deps.Merger == nil {
		return nil, fmt.Errorf("merger cannot be nil")
	}
	if deps.MaxInFlight <= 0 {
		deps.MaxInFlight = DefaultMaxInFlight
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &Pipeline{
		chunker:     deps.Chunker,
		store:       deps.Store,
		client:      deps.Client,
		retrier:     deps.Retrier,
		merger:      deps.Merger,
		player:      deps.Player,
		catalog:     deps.Catalog,
		maxInFlight: deps.MaxInFlight,
		logger:      deps.Logger,
	}, nil
}

// Speak runs one request through the pipeline. The returned Result always
// carries the terminal stage; the error is non-nil only when the request
// failed before an artifact could be produced.
func (p *Pipeline) Speak(ctx context.Context, text, voiceID string, play bool) (Result, error) {
	// RECEIVED: validate input before doing any work.
	voiceID, f := p.validate(text, voiceID)
	if f != nil {
		return failed(f), f
	}

	key := cache.Key(text, voiceID)
	result := Result{Key: key, Voice: voiceID}

	// Whole-text hit: skip chunking, synthesis, and merge entirely.
	if entry, ok := p.store.Lookup(key); ok {
		p.logger.Debug("whole-text cache hit", "key", shortKey(key))
		result.Stage = StageCacheHit
		result.CacheHit = true
		result.ArtifactPath = entry.Path
		result.ArtifactSize = entry.SizeBytes
		p.deliver(&result, play)
		return result, nil
	}

	// CHUNKED.
	segments := p.chunker.Split(text)
	if len(segments) == 0 {
		result.Stage = StageDelivered
		return result, nil
	}
	result.Stage = StageChunked
	result.Segments = len(segments)
	p.logger.Debug("chunked request", "segments", len(segments), "chars", len(text))

	// SYNTHESIZING: per-segment cache lookup, then retried synthesis.
	// Calls run concurrently; results are collected by segment ordinal so
	// merge order always equals input order.
	audioBySegment, calls, err := p.synthesize(ctx, segments, voiceID)
	if err != nil {
		f := asFault(err, fault.StageSynthesis)
		result.Stage = StageFailed
		result.Fault = f
		return result, f
	}
	result.SynthesisCalls = calls

	// MERGED.
	merged, err := p.merger.Merge(ctx, audioBySegment)
	if err != nil {
		f := fault.New(fault.CodeMerge, fault.StageMerge, "merge segments", err)
		result.Stage = StageFailed
		result.Fault = f
		return result, f
	}
	result.Stage = StageMerged
	result.ArtifactSize = int64(len(merged))

	// CACHED: a store failure degrades to a warning; the artifact is
	// still delivered from a scratch file.
	if entry, err := p.store.Store(key, merged); err != nil {
		p.logger.Warn("artifact could not be cached", "err", err)
		result.CacheFault = fault.New(fault.CodeCacheIO, fault.StageCache, "store artifact", err)
		path, werr := writeScratch(merged)
		if werr != nil {
			f := fault.New(fault.CodeCacheIO, fault.StageCache, "write artifact", werr)
			result.Stage = StageFailed
			result.Fault = f
			return result, f
		}
		result.ArtifactPath = path
	} else {
		result.Stage = StageCached
		result.ArtifactPath = entry.Path
	}

	p.deliver(&result, play)
	return result, nil
}

// StopPlayback interrupts an in-progress playback. Cache state is never
// affected: playback happens strictly after caching.
func (p *Pipeline) StopPlayback() error {
	if p.player == nil {
		return audio.ErrNothingPlaying
	}
	return p.player.Stop()
}

// validate enforces the RECEIVED-stage checks and resolves voice aliases.
func (p *Pipeline) validate(text, voiceID string) (string, *fault.Fault) {
	if strings.TrimSpace(text) == "" {
		return "", fault.New(fault.CodeInvalidInput, fault.StageValidate, "text must not be empty", nil)
	}
	if p.catalog == nil {
		if voiceID == "" {
			return "", fault.New(fault.CodeUnsupportedVoice, fault.StageValidate, "voice must not be empty", nil)
		}
		return voiceID, nil
	}
	voice, err := p.catalog.Resolve(voiceID)
	if err != nil {
		return "", asFault(err, fault.StageValidate)
	}
	return voice.ID, nil
}

// synthesize resolves every segment to audio bytes, from the cache where
// possible and through the retried client otherwise. It returns the bytes
// in segment order and the number of remote calls made.
func (p *Pipeline) synthesize(ctx context.Context, segments []chunk.Segment, voiceID string) ([][]byte, int, error) {
	results := make([][]byte, len(segments))
	var calls atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxInFlight)
	for _, segment := range segments {
		g.Go(func() error {
			segKey := cache.Key(segment.Content, voiceID)
			if entry, ok := p.store.Lookup(segKey); ok {
				data, err := os.ReadFile(entry.Path)
				if err == nil {
					p.logger.Debug("segment cache hit", "segment", segment.Index, "key", shortKey(segKey))
					results[segment.Index] = data
					return nil
				}
				// Unreadable backing file degrades to a miss.
				p.logger.Warn("cached segment unreadable, resynthesizing", "segment", segment.Index, "err", err)
			}

			calls.Add(1)
			data, err := p.retrier.Execute(gctx, func() ([]byte, error) {
				return p.client.Synthesize(gctx, segment.Content, voiceID)
			})
			if err != nil {
				return fmt.Errorf("segment %d: %w", segment.Index, err)
			}
			results[segment.Index] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, int(calls.Load()), err
	}
	return results, int(calls.Load()), nil
}

// deliver hands the artifact to the playback collaborator. Playback
// failure is reported on the result, distinct from synthesis failure, and
// never rolls back the cache write.
func (p *Pipeline) deliver(result *Result, play bool) {
	result.Stage = StageDelivered
	if !play || p.player == nil {
		return
	}

	if err := p.player.Play(result.ArtifactPath); err != nil {
		result.PlaybackFault = fault.New(fault.CodePlayback, fault.StagePlayback, "play artifact", err)
		return
	}
	result.Played = true
	p.store.RecordPlayback(result.Key)
}

// writeScratch persists an artifact outside the cache so delivery can
// proceed when the cache is unwritable.
func writeScratch(data []byte) (string, error) {
	file, err := os.CreateTemp("", "saypipe-*.mp3")
	if err != nil {
		return "", err
	}
	_, werr := file.Write(data)
	cerr := file.Close()
	if werr != nil {
		return "", werr
	}
	if cerr != nil {
		return "", cerr
	}
	return file.Name(), nil
}

// asFault guarantees an error is classified before it becomes terminal.
func asFault(err error, stage fault.Stage) *fault.Fault {
	if f := fault.From(err); f != nil {
		return f
	}
	return fault.New(fault.CodeNetwork, stage, "unclassified failure", err)
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
