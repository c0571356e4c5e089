package main

import (
	"fmt"
	"strings"

	"bwm-bot/internal/settings"
)

// handleCommand runs an owner command (text already known to come from the
// bot's own account). Returns the reply and whether text was a command.
func (a *App) handleCommand(text string) (string, bool) {
	prefix := a.Config.Prefix
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return "", false
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "bio":
		status := a.CurrentStatus()
		if status == "" {
			return "No bio set yet.", true
		}
		return fmt.Sprintf("Current bio: %s", status), true

	case "setbio":
		if len(args) == 0 {
			return fmt.Sprintf("Usage: %ssetbio <text>", prefix), true
		}
		status := strings.Join(args, " ")
		if err := a.Settings.Set(settings.KeyPresence, status); err != nil {
			return fmt.Sprintf("Bio set to %q but saving settings failed: %v", status, err), true
		}
		return fmt.Sprintf("Bio set to %q until the next rotation.", status), true

	case "autobio":
		if len(args) == 0 {
			return fmt.Sprintf("Auto bio is %s.", onOff(a.AutoBio())), true
		}
		var value string
		switch strings.ToLower(args[0]) {
		case "on", "yes", "true":
			value = "yes"
		case "off", "no", "false":
			value = "no"
		default:
			return fmt.Sprintf("Usage: %sautobio on|off", prefix), true
		}
		if err := a.Settings.Set(settings.KeyAutoBio, value); err != nil {
			return fmt.Sprintf("Auto bio %s for now but saving settings failed: %v", onOff(value == "yes"), err), true
		}
		return fmt.Sprintf("Auto bio %s.", onOff(value == "yes")), true
	}
	return "", false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
