// Package mock provides a test double for the player package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/player"
)

// Player is a mock implementation of player.Player. It records what was
// played, in order.
type Player struct {
	mu sync.Mutex

	// PlayErr, if non-nil, is returned by every PlayFile and PlayWAV call.
	PlayErr error

	// PlayedFiles records every path passed to PlayFile in order.
	PlayedFiles []string

	// PlayedWAVCount is the number of PlayWAV calls.
	PlayedWAVCount int
}

// PlayFile records the call and returns PlayErr.
func (p *Player) PlayFile(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlayedFiles = append(p.PlayedFiles, path)
	return p.PlayErr
}

// PlayWAV records the call and returns PlayErr.
func (p *Player) PlayWAV(_ context.Context, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlayedWAVCount++
	return p.PlayErr
}

// Files returns a copy of the played file paths. Thread-safe.
func (p *Player) Files() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	files := make([]string, len(p.PlayedFiles))
	copy(files, p.PlayedFiles)
	return files
}

// Reset clears all recorded calls. Thread-safe.
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlayedFiles = nil
	p.PlayedWAVCount = 0
}

// Ensure Player implements player.Player at compile time.
var _ player.Player = (*Player)(nil)
