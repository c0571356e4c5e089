package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bwm-bot/internal/bio"
	"bwm-bot/internal/config"
	"bwm-bot/internal/settings"
)

type fakePublisher struct {
	mu     sync.Mutex
	pushed []string
}

func (p *fakePublisher) SetStatusMessage(ctx context.Context, msg string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed = append(p.pushed, msg)
	return nil
}

func (p *fakePublisher) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pushed...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Prefix:      ".",
		BotName:     "BWM-MD",
		AppDir:      t.TempDir(),
		SessionDB:   "file::memory:",
		BioInterval: time.Hour,
		BioPolicy:   bio.PolicyRoundRobin,
	}
}

func newTestApp(t *testing.T, cfg *config.Config, pub bio.Publisher) *App {
	t.Helper()
	app, err := NewApp(cfg, zerolog.New(zerolog.NewTestWriter(t)), pub)
	require.NoError(t, err)
	t.Cleanup(app.Shutdown)
	return app
}

func TestApp_StartWritesSettingsAndRotates(t *testing.T) {
	cfg := testConfig(t)
	pub := &fakePublisher{}
	app := newTestApp(t, cfg, pub)

	app.Start(context.Background())

	assert.True(t, app.Rotator.Running())
	assert.Equal(t, "🚀 BWM-MD Connected", app.CurrentStatus())
	assert.True(t, app.AutoBio())
	assert.Equal(t, []string{"🚀 BWM-MD Connected"}, pub.all())

	data, err := os.ReadFile(filepath.Join(cfg.AppDir, "config", settings.DefaultFileName))
	require.NoError(t, err)
	var doc settings.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "yes", doc.Settings[settings.KeyAutoBio])
	assert.Equal(t, "🚀 BWM-MD Connected", doc.Settings[settings.KeyPresence])
	assert.DirExists(t, filepath.Join(cfg.AppDir, "backup"))

	app.Shutdown()
	assert.False(t, app.Rotator.Running())
}

func TestApp_ConfiguredQuotes(t *testing.T) {
	cfg := testConfig(t)
	cfg.BioQuotes = []string{"one", "two"}
	cfg.BioSeed = 1
	app := newTestApp(t, cfg, nil)

	app.Start(context.Background())
	assert.Equal(t, "two", app.CurrentStatus())
}

func TestApp_PushStatus(t *testing.T) {
	cfg := testConfig(t)
	pub := &fakePublisher{}
	app := newTestApp(t, cfg, pub)
	app.Settings.Initialize()

	require.NoError(t, app.Settings.Set(settings.KeyPresence, "manual"))
	require.NoError(t, app.PushStatus(context.Background()))
	assert.Equal(t, []string{"manual"}, pub.all())

	require.NoError(t, app.Settings.Set(settings.KeyAutoBio, "no"))
	require.NoError(t, app.PushStatus(context.Background()))
	assert.Len(t, pub.all(), 1, "auto bio off must not push")
}

func TestApp_PushStatusWithoutPublisher(t *testing.T) {
	app := newTestApp(t, testConfig(t), nil)
	app.Settings.Initialize()
	assert.NoError(t, app.PushStatus(context.Background()))
}

func TestNewApp_InvalidPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.BioPolicy = "weighted"
	_, err := NewApp(cfg, zerolog.Nop(), nil)
	assert.Error(t, err)
}
