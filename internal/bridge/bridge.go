package bridge

import (
	"context"

	"downforge/internal/app"
	"downforge/internal/config"
	"downforge/internal/engine"
	"downforge/internal/events"
	"downforge/internal/logger"
	"downforge/internal/record"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// Service is the Wails v3 Facade exposing the Engine's API (spec
// §6.3) to the frontend. It owns nothing beyond the Engine handle and
// the subscription goroutine: all lifecycle state lives in the
// Engine.
//
// Grounded on down-kingo-downkingo's App struct (ServiceStartup wiring
// paths/config/stores, ServiceShutdown tearing them down, and the
// application.Get().Event.Emit pattern for pushing events to the
// frontend).
type Service struct {
	engine *engine.Engine
	cancel context.CancelFunc
}

// NewService creates an unstarted Service. Engine construction happens
// in ServiceStartup, matching the teacher's pattern of deferring
// filesystem/network setup out of the constructor.
func NewService() *Service {
	return &Service{}
}

// ServiceStartup is called when the app starts (Wails v3 lifecycle).
func (s *Service) ServiceStartup(ctx context.Context, options application.ServiceOptions) error {
	paths, err := app.GetPaths()
	if err != nil {
		logger.Log.Error().Err(err).Msg("bridge: failed to resolve app paths")
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Log.Error().Err(err).Msg("bridge: failed to create app directories")
		return err
	}

	cfg, err := config.Load(paths.AppData)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("bridge: failed to load config, using defaults")
		cfg = config.Default()
	}

	e, err := engine.NewWithConfig(paths.AppData, cfg)
	if err != nil {
		logger.Log.Error().Err(err).Msg("bridge: failed to start engine")
		return err
	}
	s.engine = e

	relayCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.relayEvents(relayCtx)

	application.Get().Event.Emit(events.AppReady, nil)
	return nil
}

// relayEvents republishes every EventBus event as a Wails frontend
// event, until ctx is cancelled or the Engine closes its bus.
func (s *Service) relayEvents(ctx context.Context) {
	sub := s.engine.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if app := application.Get(); app != nil {
				app.Event.Emit(events.DownloadChanged, ev.Record)
			}
		}
	}
}

// ServiceShutdown is called when the app shuts down (Wails v3
// lifecycle).
func (s *Service) ServiceShutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.engine != nil {
		s.engine.Close()
	}
	logger.Log.Info().Msg("bridge: shutdown complete")
	return nil
}

// List returns every known Record (spec §6.3 `list`).
func (s *Service) List() []record.Record {
	return s.engine.List()
}

// Get returns the Record at path, synthetic Pending if unknown (spec
// §6.3 `get`).
func (s *Service) Get(path string) (record.Record, error) {
	clean, err := guardPath(path)
	if err != nil {
		return record.Record{}, err
	}
	return s.engine.Get(clean), nil
}

// Create registers a new download (spec §6.3 `create`).
func (s *Service) Create(path, url string) (engine.ActionResponse, error) {
	cleanPath, err := guardPath(path)
	if err != nil {
		return engine.ActionResponse{}, err
	}
	cleanURL, err := guardURL(url)
	if err != nil {
		return engine.ActionResponse{}, err
	}
	return s.engine.Create(cleanPath, cleanURL)
}

// Start begins a fresh transfer (spec §6.3 `start`).
func (s *Service) Start(path string) (engine.ActionResponse, error) {
	clean, err := guardPath(path)
	if err != nil {
		return engine.ActionResponse{}, err
	}
	return s.engine.Start(clean)
}

// Pause stops an in-flight transfer cooperatively (spec §6.3 `pause`).
func (s *Service) Pause(path string) (engine.ActionResponse, error) {
	clean, err := guardPath(path)
	if err != nil {
		return engine.ActionResponse{}, err
	}
	return s.engine.Pause(clean)
}

// Resume restarts a paused transfer (spec §6.3 `resume`).
func (s *Service) Resume(path string) (engine.ActionResponse, error) {
	clean, err := guardPath(path)
	if err != nil {
		return engine.ActionResponse{}, err
	}
	return s.engine.Resume(clean)
}

// Cancel stops and discards a download (spec §6.3 `cancel`).
func (s *Service) Cancel(path string) (engine.ActionResponse, error) {
	clean, err := guardPath(path)
	if err != nil {
		return engine.ActionResponse{}, err
	}
	return s.engine.Cancel(clean)
}
