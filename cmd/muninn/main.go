// Command muninn is the main entry point for the Muninn family voice
// assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/app"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/config"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/observe"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/capture/arecord"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/player"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/player/aplay"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/stt/vosk"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/tts/piper"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/wake"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/provider/wake/sigusr"
)

// version is stamped by the build; "dev" for local builds.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "muninn: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "muninn: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("muninn starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "muninn",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("muninn ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("vosk", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []vosk.Option
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, vosk.WithSampleRate(rate))
		}
		return vosk.New(entry.Endpoint, opts...), nil
	})

	reg.RegisterTTS("piper", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []piper.Option
		if entry.Voice != "" {
			opts = append(opts, piper.WithVoice(entry.Voice))
		}
		return piper.New(entry.Endpoint, opts...)
	})

	reg.RegisterWake("sigusr", func(config.ProviderEntry) (wake.Detector, error) {
		return sigusr.New(), nil
	})

	reg.RegisterCapture("arecord", func(entry config.ProviderEntry) (capture.Recorder, error) {
		var opts []arecord.Option
		if entry.Device != "" {
			opts = append(opts, arecord.WithDevice(entry.Device))
		}
		if rate := optInt(entry.Options, "sample_rate"); rate > 0 {
			opts = append(opts, arecord.WithSampleRate(rate))
		}
		return arecord.New(entry.Directory, opts...)
	})

	reg.RegisterPlayer("aplay", func(entry config.ProviderEntry) (player.Player, error) {
		var opts []aplay.Option
		if entry.Device != "" {
			opts = append(opts, aplay.WithDevice(entry.Device))
		}
		return aplay.New(opts...), nil
	})
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		ps.STT = p
		slog.Info("provider created", "kind", "stt", "name", name)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	if name := cfg.Providers.Wake.Name; name != "" {
		p, err := reg.CreateWake(cfg.Providers.Wake)
		if err != nil {
			return nil, fmt.Errorf("create wake provider %q: %w", name, err)
		}
		ps.Wake = p
		slog.Info("provider created", "kind", "wake", "name", name)
	}

	if name := cfg.Providers.Capture.Name; name != "" {
		p, err := reg.CreateCapture(cfg.Providers.Capture)
		if err != nil {
			return nil, fmt.Errorf("create capture provider %q: %w", name, err)
		}
		ps.Capture = p
		slog.Info("provider created", "kind", "capture", "name", name)
	}

	if name := cfg.Providers.Player.Name; name != "" {
		p, err := reg.CreatePlayer(cfg.Providers.Player)
		if err != nil {
			return nil, fmt.Errorf("create player provider %q: %w", name, err)
		}
		ps.Player = p
		slog.Info("provider created", "kind", "player", "name", name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Muninn — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Endpoint)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Endpoint)
	printProvider("Wake", cfg.Providers.Wake.Name, "")
	printProvider("Capture", cfg.Providers.Capture.Name, cfg.Providers.Capture.Device)
	printProvider("Player", cfg.Providers.Player.Name, cfg.Providers.Player.Device)
	if cfg.Store.PostgresDSN != "" {
		fmt.Printf("║  Store       : %-22s ║\n", "postgres")
	} else {
		fmt.Printf("║  Store       : %-22s ║\n", "(in-memory)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr : %-22s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, detail string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if detail != "" {
		value = name + " / " + detail
	}
	if len(value) > 22 {
		value = value[:19] + "…"
	}
	fmt.Printf("║  %-10s  : %-22s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optInt extracts an integer value from a provider Options map. YAML decodes
// whole numbers as int; 0 is returned for a missing or non-integer value.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	v, ok := opts[key]
	if !ok {
		return 0
	}
	n, ok := v.(int)
	if !ok {
		return 0
	}
	return n
}
