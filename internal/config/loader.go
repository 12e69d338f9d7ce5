package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind. Used by
// [Validate] to warn about unrecognised names.
var ValidProviderNames = map[string][]string{
	"stt":     {"vosk"},
	"tts":     {"piper"},
	"wake":    {"sigusr"},
	"capture": {"arecord"},
	"player":  {"aplay"},
}

// Conversation defaults applied by [applyDefaults].
const (
	defaultFollowupTimeout     = 8 * time.Second
	defaultSessionLifetime     = 15 * time.Second
	defaultMaxTurns            = 5
	defaultCaptureMaxDuration  = 60 * time.Second
	defaultSimilarityThreshold = 0.65
	defaultFallbackThreshold   = 0.55
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued conversation bounds.
func applyDefaults(cfg *Config) {
	c := &cfg.Conversation
	if c.FollowupTimeout == 0 {
		c.FollowupTimeout = defaultFollowupTimeout
	}
	if c.SessionLifetime == 0 {
		c.SessionLifetime = defaultSessionLifetime
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = defaultMaxTurns
	}
	if c.CaptureMaxDuration == 0 {
		c.CaptureMaxDuration = defaultCaptureMaxDuration
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = defaultSimilarityThreshold
	}
	if c.FallbackThreshold == 0 {
		c.FallbackThreshold = defaultFallbackThreshold
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.RosterFile == "" {
		errs = append(errs, errors.New("roster_file is required"))
	}

	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("wake", cfg.Providers.Wake.Name)
	validateProviderName("capture", cfg.Providers.Capture.Name)
	validateProviderName("player", cfg.Providers.Player.Name)

	c := cfg.Conversation
	if c.FollowupTimeout < 0 {
		errs = append(errs, fmt.Errorf("conversation.followup_timeout %v must be positive", c.FollowupTimeout))
	}
	if c.SessionLifetime < 0 {
		errs = append(errs, fmt.Errorf("conversation.session_lifetime %v must be positive", c.SessionLifetime))
	}
	if c.SessionLifetime > 0 && c.FollowupTimeout > c.SessionLifetime {
		errs = append(errs, fmt.Errorf("conversation.followup_timeout %v exceeds session_lifetime %v", c.FollowupTimeout, c.SessionLifetime))
	}
	if c.CaptureMaxDuration < 0 {
		errs = append(errs, fmt.Errorf("conversation.capture_max_duration %v must be positive", c.CaptureMaxDuration))
	}
	if c.CaptureMaxDuration > c.SessionLifetime && c.SessionLifetime > 0 {
		slog.Warn("conversation.capture_max_duration exceeds session_lifetime; the session is extended while a recording runs",
			"capture_max_duration", c.CaptureMaxDuration,
			"session_lifetime", c.SessionLifetime,
		)
	}
	if c.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("conversation.max_turns %d must be positive", c.MaxTurns))
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("conversation.similarity_threshold %.2f is out of range (0, 1]", c.SimilarityThreshold))
	}
	if c.FallbackThreshold < 0 || c.FallbackThreshold > 1 {
		errs = append(errs, fmt.Errorf("conversation.fallback_threshold %.2f is out of range (0, 1]", c.FallbackThreshold))
	}

	if cfg.Store.PostgresDSN == "" {
		slog.Warn("store.postgres_dsn is empty; recordings cannot be saved or played back")
	}

	w := cfg.Weather
	if w.Latitude < -90 || w.Latitude > 90 {
		errs = append(errs, fmt.Errorf("weather.latitude %.4f is out of range [-90, 90]", w.Latitude))
	}
	if w.Longitude < -180 || w.Longitude > 180 {
		errs = append(errs, fmt.Errorf("weather.longitude %.4f is out of range [-180, 180]", w.Longitude))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
