package main

import (
	"fmt"

	"bwm-bot/internal/config"
)

// bioQuotes returns the configured quote list, or the built-in one tagged
// with the bot's name.
func bioQuotes(cfg *config.Config) []string {
	if len(cfg.BioQuotes) > 0 {
		return cfg.BioQuotes
	}
	return []string{
		fmt.Sprintf("🚀 %s Connected", cfg.BotName),
		"💡 Smart WhatsApp Assistant",
		"✨ Always Available",
	}
}
