package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"bwm-bot/internal/bio"
	"bwm-bot/internal/config"
	"bwm-bot/internal/logging"
	"bwm-bot/internal/settings"
)

// App is built once at startup and handed to whatever needs the settings
// or the rotator.
type App struct {
	Config    *config.Config
	Settings  *settings.Store
	Rotator   *bio.Rotator
	Publisher bio.Publisher
	Log       zerolog.Logger
}

// NewApp wires the settings store and the bio rotator. pub may be nil, in
// which case bios are only stored, never pushed.
func NewApp(cfg *config.Config, log zerolog.Logger, pub bio.Publisher) (*App, error) {
	quotes := bioQuotes(cfg)

	store := newSettingsStore(cfg, log, quotes[0])

	rotator, err := bio.New(bio.Options{
		Store:      store,
		Candidates: quotes,
		Interval:   cfg.BioInterval,
		Policy:     cfg.BioPolicy,
		Seed:       cfg.BioSeed,
		Publisher:  pub,
		Logger:     logging.Component(log, "bio"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating bio rotator: %w", err)
	}

	return &App{
		Config:    cfg,
		Settings:  store,
		Rotator:   rotator,
		Publisher: pub,
		Log:       log,
	}, nil
}

func newSettingsStore(cfg *config.Config, log zerolog.Logger, presence string) *settings.Store {
	return settings.New(settings.Options{
		Dir:       cfg.SettingsDir(),
		BackupDir: cfg.BackupDir(),
		Defaults: map[string]string{
			settings.KeyAutoBio:  "yes",
			settings.KeyPresence: presence,
		},
		Logger: logging.Component(log, "settings"),
	})
}

// Start loads the settings and begins bio rotation.
func (a *App) Start(ctx context.Context) {
	a.Settings.Initialize()
	a.Rotator.Start(ctx)
}

// Shutdown stops rotation and waits for an in-flight settings write.
func (a *App) Shutdown() {
	a.Rotator.Stop()
}

// CurrentStatus returns the bio currently configured in the settings.
func (a *App) CurrentStatus() string {
	return a.Settings.Get(settings.KeyPresence, "")
}

// AutoBio reports whether bios are pushed to WhatsApp.
func (a *App) AutoBio() bool {
	return bio.AutoBioEnabled(a.Settings)
}

// PushStatus sends the current bio to WhatsApp right away, if auto bio is
// on. Used when the client (re)connects so it does not wait a full interval.
func (a *App) PushStatus(ctx context.Context) error {
	status := a.CurrentStatus()
	if a.Publisher == nil || status == "" || !a.AutoBio() {
		return nil
	}
	return bio.Publish(ctx, a.Publisher, status, bio.DefaultPublishTimeout)
}
