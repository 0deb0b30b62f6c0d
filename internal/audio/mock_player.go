package audio

import "sync"

// MockPlayer is a Player test double that records calls and returns
// configurable errors.
type MockPlayer struct {
	mu sync.Mutex

	Played  []string
	Stopped int

	PlayErr error
	StopErr error

	// BlockUntilStop makes Play block until Stop is called, mimicking the
	// real player's blocking behavior.
	BlockUntilStop bool
	release        chan struct{}
}

var _ Player = (*MockPlayer)(nil)

// Play records the path and returns PlayErr.
func (m *MockPlayer) Play(path string) error {
	m.mu.Lock()
	m.Played = append(m.Played, path)
	if m.PlayErr != nil {
		m.mu.Unlock()
		return m.PlayErr
	}
	var release chan struct{}
	if m.BlockUntilStop {
		release = make(chan struct{})
		m.release = release
	}
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	return nil
}

// PlayCount reports how many Play calls were made. Safe to poll from
// another goroutine while Play is blocked.
func (m *MockPlayer) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Played)
}

// Stop records the call, unblocks a pending Play, and returns StopErr.
func (m *MockPlayer) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stopped++
	if m.release != nil {
		close(m.release)
		m.release = nil
	}
	return m.StopErr
}
