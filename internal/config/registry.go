package config

import (
	"fmt"
	"sync"

	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/player"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/wake"
)

// ErrProviderNotRegistered is returned by the Create methods when a provider
// entry names an implementation nobody registered.
var ErrProviderNotRegistered = fmt.Errorf("config: provider not registered")

// STTFactory builds an STT provider from its configuration entry.
type STTFactory func(entry ProviderEntry) (stt.Provider, error)

// TTSFactory builds a TTS provider from its configuration entry.
type TTSFactory func(entry ProviderEntry) (tts.Provider, error)

// WakeFactory builds a wake detector from its configuration entry.
type WakeFactory func(entry ProviderEntry) (wake.Detector, error)

// CaptureFactory builds an audio recorder from its configuration entry.
type CaptureFactory func(entry ProviderEntry) (capture.Recorder, error)

// PlayerFactory builds an audio player from its configuration entry.
type PlayerFactory func(entry ProviderEntry) (player.Player, error)

// Registry maps provider names to constructors for each provider kind. The
// application registers its built-in implementations at startup and the
// registry instantiates whichever ones the configuration selects.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	stt     map[string]STTFactory
	tts     map[string]TTSFactory
	wake    map[string]WakeFactory
	capture map[string]CaptureFactory
	player  map[string]PlayerFactory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		stt:     make(map[string]STTFactory),
		tts:     make(map[string]TTSFactory),
		wake:    make(map[string]WakeFactory),
		capture: make(map[string]CaptureFactory),
		player:  make(map[string]PlayerFactory),
	}
}

// RegisterSTT registers an STT factory under the given name, replacing any
// previous registration.
func (r *Registry) RegisterSTT(name string, factory STTFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterTTS registers a TTS factory under the given name.
func (r *Registry) RegisterTTS(name string, factory TTSFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterWake registers a wake detector factory under the given name.
func (r *Registry) RegisterWake(name string, factory WakeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wake[name] = factory
}

// RegisterCapture registers a recorder factory under the given name.
func (r *Registry) RegisterCapture(name string, factory CaptureFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capture[name] = factory
}

// RegisterPlayer registers a player factory under the given name.
func (r *Registry) RegisterPlayer(name string, factory PlayerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.player[name] = factory
}

// CreateSTT instantiates the STT provider named by entry.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates the TTS provider named by entry.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.tts[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateWake instantiates the wake detector named by entry.
func (r *Registry) CreateWake(entry ProviderEntry) (wake.Detector, error) {
	r.mu.RLock()
	factory, ok := r.wake[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: wake/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateCapture instantiates the recorder named by entry.
func (r *Registry) CreateCapture(entry ProviderEntry) (capture.Recorder, error) {
	r.mu.RLock()
	factory, ok := r.capture[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreatePlayer instantiates the player named by entry.
func (r *Registry) CreatePlayer(entry ProviderEntry) (player.Player, error) {
	r.mu.RLock()
	factory, ok := r.player[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: player/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
