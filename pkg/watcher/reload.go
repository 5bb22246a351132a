package watcher

import (
	"context"

	"github.com/vcanio/Terio-sub000/pkg/config"
	"github.com/vcanio/Terio-sub000/pkg/logging"
)

// Reloader re-reads the configuration after each debounced change and hands
// the differences to Apply
type Reloader struct {
	Load  func() (*config.Config, error)
	Apply func(cfg *config.Config, changes *ChangeAnalysis)

	current *config.Config
}

// NewReloader creates a reloader starting from the running configuration
func NewReloader(current *config.Config, load func() (*config.Config, error), apply func(*config.Config, *ChangeAnalysis)) *Reloader {
	return &Reloader{Load: load, Apply: apply, current: current}
}

// Run consumes events until ctx is cancelled or events is closed
func (r *Reloader) Run(ctx context.Context, events <-chan ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			r.reload(event)
		}
	}
}

func (r *Reloader) reload(event ChangeEvent) {
	cfg, err := r.Load()
	if err != nil {
		// Keep running with the last good configuration
		logging.Warn("config reload failed", "trigger", event.Type.String(), "error", err)
		return
	}

	changes := AnalyzeChanges(r.current, cfg)
	if changes.Empty() {
		logging.Debug("config unchanged", "trigger", event.Type.String())
		return
	}
	if len(changes.NeedRestart) > 0 {
		logging.Warn("settings changed that need a restart", "settings", changes.NeedRestart)
	}
	logging.Info("config reloaded", "trigger", event.Type.String(), "paths", event.Paths)

	r.current = cfg
	if r.Apply != nil {
		r.Apply(cfg, changes)
	}
}

// Current returns the configuration most recently applied
func (r *Reloader) Current() *config.Config {
	return r.current
}
