// Package synth provides the remote speech-synthesis client and the voice
// catalog. One network call synthesizes one text segment for one voice.
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wujunwei928/edge-tts-go/edge_tts"
	"golang.org/x/time/rate"

	"github.com/saypipe/saypipe/internal/fault"
)

// DefaultRequestsPerMinute paces synthesis calls so bursts of segments do
// not trip the remote service's throttling.
const DefaultRequestsPerMinute = 60

// Client performs one remote synthesis call per segment.
type Client interface {
	// Synthesize converts text to audio bytes using the given voice.
	// Errors are classified per the fault taxonomy.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// EdgeClient synthesizes speech through the Edge neural TTS service.
type EdgeClient struct {
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewEdgeClient creates a rate-limited Edge synthesis client.
func NewEdgeClient(requestsPerMinute int, logger *log.Logger) *EdgeClient {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &EdgeClient{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		logger:  logger,
	}
}

// Synthesize performs a single synthesis call. The rate limiter suspends
// only the calling request.
func (c *EdgeClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	communicate, err := edge_tts.New(voiceID)
	if err != nil {
		return nil, Classify(fmt.Errorf("create edge communicator: %w", err))
	}
	defer communicate.Close()

	data, err := communicate.Output(text)
	if err != nil {
		return nil, Classify(fmt.Errorf("edge synthesis: %w", err))
	}
	if len(data) == 0 {
		return nil, fault.New(fault.CodeRemoteRejected, fault.StageSynthesis,
			"remote returned empty audio", nil)
	}

	c.logger.Debug("synthesized segment", "voice", voiceID, "chars", len(text), "bytes", len(data))
	return data, nil
}
