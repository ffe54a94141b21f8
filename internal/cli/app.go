package cli

import (
	"context"
	"fmt"
	"time"

	"jarvis/internal/analyzer"
	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/core"
	"jarvis/internal/llm"
	"jarvis/internal/logger"
	"jarvis/internal/memory"
	"jarvis/internal/metrics"
	"jarvis/internal/storage"

	"github.com/rs/zerolog"
)

// app holds the collaborators shared by every command
type app struct {
	config  *config.Config
	logger  zerolog.Logger
	backend storage.Backend
	memory  *memory.Store

	device audio.Device
	bridge *audio.Bridge
}

// openApp loads configuration, initializes logging and opens the store.
// Audio devices are opened only when withAudio is set.
func openApp(ctx context.Context, withAudio bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if personaPath != "" {
		persona, err := config.LoadPersona(personaPath)
		if err != nil {
			return nil, err
		}
		cfg.Persona = *persona
	}
	if offlineFlag {
		cfg.Assistant.ForceOffline = true
	}
	if noVoiceFlag {
		cfg.Assistant.VoiceEnabled = false
	}

	if err := logger.InitLogger(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Logger

	backend, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	a := &app{
		config:  cfg,
		logger:  log,
		backend: backend,
		memory:  memory.NewStore(backend, memory.WithLogger(log)),
	}

	if withAudio {
		a.openAudio()
	}
	return a, nil
}

// openAudio selects the device backend. A device that fails to open
// degrades to text only.
func (a *app) openAudio() {
	var device audio.Device
	if a.config.Audio.Backend == "malgo" {
		d, err := audio.NewMalgoDevice(a.logger)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Audio device unavailable, continuing without sound")
		} else {
			device = d
		}
	}

	bridgeConfig := audio.BridgeConfig{
		CaptureSampleRate: a.config.Audio.CaptureSampleRate,
		MaxRecord:         time.Duration(a.config.Audio.MaxRecordSeconds) * time.Second,
	}
	if device == nil {
		a.bridge = audio.NewBridge(nil, nil, bridgeConfig, a.logger)
		return
	}
	a.device = device
	a.bridge = audio.NewBridge(device, device, bridgeConfig, a.logger)
}

// newCoordinator builds the exchange coordinator on top of the app
func (a *app) newCoordinator(ctx context.Context, observer core.Observer) (*core.Coordinator, error) {
	var (
		client llm.Client
		err    error
	)
	if !a.config.Assistant.ForceOffline {
		client, err = llm.New(ctx, a.config.LLM, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
	}

	var network core.Network = core.DialProbe{Addr: a.config.Assistant.ProbeAddr}
	if a.config.Assistant.ForceOffline {
		network = core.StaticNetwork(false)
	}

	if a.bridge == nil {
		a.openAudio()
	}

	if a.config.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.config.Metrics.Addr, a.logger); err != nil {
				a.logger.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	persona := a.config.Persona
	return core.NewCoordinator(core.Deps{
		Analyzer: analyzer.New(analyzerKeywords(persona.Keywords), a.config.Assistant.MaxTrackedCommands),
		Memory:   a.memory,
		LLM:      client,
		Audio:    a.bridge,
		Tasks:    a.backend,
		Activity: a.backend,
		Network:  network,
		Persona:  persona,
		Options: core.Options{
			VoiceEnabled:     a.config.Assistant.VoiceEnabled,
			ReasoningEnabled: a.config.Assistant.ReasoningEnabled,
			Search:           a.config.LLM.Search,
			HistoryTurns:     a.config.Assistant.HistoryTurns,
		},
		Logger:   a.logger,
		Observer: observer,
	}), nil
}

func analyzerKeywords(k config.Keywords) analyzer.Keywords {
	return analyzer.Keywords{
		Urgency:     k.Urgency,
		Analytical:  k.Analytical,
		Social:      k.Social,
		Engineering: k.Engineering,
	}
}

// Close drains background work and releases devices and the store
func (a *app) Close() {
	a.memory.Flush()
	if a.bridge != nil {
		a.bridge.WaitCues()
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close audio device")
		}
	}
	if err := a.backend.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close store")
	}
}
