package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bwm-bot/internal/settings"
)

func TestHandleCommand(t *testing.T) {
	app := newTestApp(t, testConfig(t), nil)
	app.Settings.Initialize()

	tests := []struct {
		text    string
		reply   string
		handled bool
	}{
		{"hello", "", false},
		{".", "", false},
		{".unknown", "", false},
		{".bio", "Current bio: 🚀 BWM-MD Connected", true},
		{".setbio", "Usage: .setbio <text>", true},
		{".setbio gone fishing", `Bio set to "gone fishing" until the next rotation.`, true},
		{".BIO", "Current bio: gone fishing", true},
		{".autobio", "Auto bio is on.", true},
		{".autobio maybe", "Usage: .autobio on|off", true},
		{".autobio off", "Auto bio off.", true},
		{".autobio", "Auto bio is off.", true},
		{".autobio ON", "Auto bio on.", true},
	}
	for _, tt := range tests {
		reply, handled := app.handleCommand(tt.text)
		assert.Equal(t, tt.handled, handled, tt.text)
		assert.Equal(t, tt.reply, reply, tt.text)
	}

	assert.Equal(t, "yes", app.Settings.Get(settings.KeyAutoBio, ""))
	assert.Equal(t, "gone fishing", app.Settings.Get(settings.KeyPresence, ""))
}

func TestHandleCommand_CustomPrefix(t *testing.T) {
	cfg := testConfig(t)
	cfg.Prefix = "!"
	app := newTestApp(t, cfg, nil)
	app.Settings.Initialize()

	_, handled := app.handleCommand(".bio")
	assert.False(t, handled)

	reply, handled := app.handleCommand("!bio")
	assert.True(t, handled)
	assert.Equal(t, "Current bio: 🚀 BWM-MD Connected", reply)
}
