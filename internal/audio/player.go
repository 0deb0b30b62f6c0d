// Package audio plays finished artifacts. The pipeline only depends on the
// Player contract; how playback happens is a collaborator detail.
package audio

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// ErrNothingPlaying is returned by Stop when no playback is active.
var ErrNothingPlaying = errors.New("nothing is playing")

// Player is the playback collaborator contract. Play blocks until the
// artifact finishes or Stop interrupts it; both report distinguishable
// failures.
type Player interface {
	Play(path string) error
	Stop() error
}

// OtoPlayer plays mp3 artifacts through the system audio device. The oto
// context is created once, on first use, with the first artifact's sample
// rate.
type OtoPlayer struct {
	mu        sync.Mutex
	context   *oto.Context
	rate      int
	current   *oto.Player
	interrupt chan struct{}

	logger *log.Logger
}

// NewOtoPlayer creates an uninitialized player. The audio device is not
// touched until the first Play call.
func NewOtoPlayer(logger *log.Logger) *OtoPlayer {
	if logger == nil {
		logger = log.Default()
	}
	return &OtoPlayer{logger: logger}
}

// Play decodes the mp3 artifact at path and blocks until playback drains
// or Stop is called. Interruption by Stop is not an error.
func (p *OtoPlayer) Play(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}

	ctx, err := p.contextFor(decoder.SampleRate())
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.current != nil {
		p.stopLocked()
	}
	player := ctx.NewPlayer(decoder)
	interrupt := make(chan struct{})
	p.current = player
	p.interrupt = interrupt
	p.mu.Unlock()

	p.logger.Debug("playback started", "path", path)
	player.Play()

	for player.IsPlaying() {
		select {
		case <-interrupt:
			p.logger.Debug("playback interrupted", "path", path)
			return p.finish(player)
		case <-time.After(20 * time.Millisecond):
		}
	}
	p.logger.Debug("playback finished", "path", path)
	return p.finish(player)
}

// Stop interrupts the active playback, if any.
func (p *OtoPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return ErrNothingPlaying
	}
	p.stopLocked()
	return nil
}

// stopLocked pauses the current player and signals the blocked Play call.
// Caller holds the lock.
func (p *OtoPlayer) stopLocked() {
	p.current.Pause()
	if p.interrupt != nil {
		close(p.interrupt)
		p.interrupt = nil
	}
}

// finish releases the finished or interrupted player.
func (p *OtoPlayer) finish(player *oto.Player) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == player {
		p.current = nil
		p.interrupt = nil
	}
	if err := player.Close(); err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	return nil
}

// contextFor returns the process-wide oto context, creating it on first
// use. oto supports a single context per process, so the first artifact's
// sample rate wins; Edge synthesis output is uniform in practice.
func (p *OtoPlayer) contextFor(sampleRate int) (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.context != nil {
		if p.rate != sampleRate {
			p.logger.Warn("sample rate differs from audio context", "context", p.rate, "artifact", sampleRate)
		}
		return p.context, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2, // go-mp3 always decodes to 16-bit stereo
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("create audio context: %w", err)
	}
	<-ready

	p.context = ctx
	p.rate = sampleRate
	return ctx, nil
}
