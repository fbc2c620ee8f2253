package main

import (
	"toolbox/cmd/toolbox/ui"
	"toolbox/internal/config"
	"toolbox/internal/fetch"
	"toolbox/internal/index"
	"toolbox/internal/installer"
	"toolbox/internal/logging"
	"toolbox/internal/paths"
	"toolbox/internal/record"
	"toolbox/internal/shortcut"
	"toolbox/internal/store"

	"go.uber.org/zap"
)

// App holds everything a command needs.
type App struct {
	cfg       *config.Config
	layout    paths.Layout
	console   *ui.Console
	prompt    ui.Prompter
	manager   *index.Manager
	cache     *index.Cache
	records   *record.Store
	history   *store.History // nil when disabled
	installer *installer.Installer
}

// newApp wires the components for cfg.
func newApp(cfg *config.Config, console *ui.Console, prompt ui.Prompter) (*App, error) {
	layout := paths.Resolve(cfg.Paths.Root)

	client := fetch.NewClient(fetch.Options{
		Timeout:    cfg.GetTimeout(),
		Retries:    cfg.Network.Retries,
		UserAgent:  cfg.Network.UserAgent,
		HTTPProxy:  cfg.Network.HTTPProxy,
		HTTPSProxy: cfg.Network.HTTPSProxy,
		NoProxy:    cfg.Network.NoProxy,
	})

	a := &App{
		cfg:     cfg,
		layout:  layout,
		console: console,
		prompt:  prompt,
		records: record.NewStore(layout.RecordFile),
	}
	a.manager = index.NewManager(layout.IndexFile, cfg.Index.URL, client, console)
	a.cache = index.NewCache(a.manager)

	if cfg.Install.History {
		h, err := store.OpenHistory(layout.HistoryDB)
		if err != nil {
			// The journal is optional; installs work without it.
			logger.Warn("install history unavailable", zap.Error(err))
		} else {
			a.history = h
		}
	}

	var shortcuts installer.Shortcuts
	if cfg.Install.Shortcuts {
		shortcuts = shortcut.New("")
	}

	a.installer = installer.New(installer.Config{
		Layout:      layout,
		Index:       a.cache,
		Updater:     a.manager,
		Downloader:  client,
		Records:     a.records,
		History:     a.history,
		Shortcuts:   shortcuts,
		Prompt:      prompt,
		Out:         console,
		Concurrency: cfg.GetConcurrency(),
	})
	logging.BootDebug("App ready: index=%s record=%s", layout.IndexFile, layout.RecordFile)
	return a, nil
}

// Close releases the history database and stops the index watcher.
func (a *App) Close() {
	a.cache.Stop()
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			logger.Warn("failed to close history", zap.Error(err))
		}
	}
}
