// Package config resolves the bot's runtime configuration from, in order of
// precedence, command-line flags, the environment (including a .env file)
// and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bwm-bot/internal/bio"
)

// Keys double as lower-cased environment variable names.
const (
	KeyPrefix      = "prefix"
	KeyBotName     = "bot_name"
	KeyAppDir      = "app_dir"
	KeySessionDB   = "session_db"
	KeyBioInterval = "bio_interval"
	KeyBioPolicy   = "bio_policy"
	KeyBioQuotes   = "bio_quotes"
	KeyBioSeed     = "bio_seed"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
)

var ErrInvalid = errors.New("invalid configuration")

var defaults = map[string]any{
	KeyPrefix:      ".",
	KeyBotName:     "BWM-MD",
	KeyAppDir:      ".",
	KeySessionDB:   "file:session.db?_foreign_keys=on",
	KeyBioInterval: bio.DefaultInterval.String(),
	KeyBioPolicy:   string(bio.PolicyRandom),
	KeyBioQuotes:   "",
	KeyBioSeed:     0,
	KeyLogLevel:    "info",
	KeyLogFormat:   "console",
}

type flagSpec struct {
	name  string
	key   string
	usage string
}

var flagSpecs = []flagSpec{
	{"prefix", KeyPrefix, "prefix for owner chat commands"},
	{"bot-name", KeyBotName, "bot display name"},
	{"app-dir", KeyAppDir, "directory holding config/ and backup/"},
	{"session-db", KeySessionDB, "sqlite DSN for the WhatsApp device store"},
	{"bio-interval", KeyBioInterval, "bio rotation interval (duration or milliseconds)"},
	{"bio-policy", KeyBioPolicy, "bio selection policy: random or round-robin"},
	{"bio-quotes", KeyBioQuotes, "\"|\"-separated bio quotes, overrides the built-in list"},
	{"bio-seed", KeyBioSeed, "seed for bio selection (0 = time based for random)"},
	{"log-level", KeyLogLevel, "log level: debug, info, warn, error"},
	{"log-format", KeyLogFormat, "log format: console or json"},
}

// RegisterFlags adds a flag for every configuration key to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, f := range flagSpecs {
		fs.String(f.name, fmt.Sprint(defaults[f.key]), f.usage)
	}
}

type Config struct {
	Prefix      string
	BotName     string
	AppDir      string
	SessionDB   string
	BioInterval time.Duration
	BioPolicy   bio.Policy
	BioQuotes   []string
	BioSeed     uint64
	LogLevel    string
	LogFormat   string
}

// Load reads the env files, then resolves every key. With no envFiles the
// ".env" in the working directory is read if it exists; named files must
// exist and parse. flags may be nil; only flags the user actually set
// override the environment.
func Load(flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	v := viper.New()
	for key, def := range defaults {
		v.SetDefault(key, def)
	}
	v.AutomaticEnv()

	if flags != nil {
		for _, spec := range flagSpecs {
			if f := flags.Lookup(spec.name); f != nil {
				if err := v.BindPFlag(spec.key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", spec.name, err)
				}
			}
		}
	}

	policy, err := bio.ParsePolicy(v.GetString(KeyBioPolicy))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	interval, err := parseInterval(v.GetString(KeyBioInterval))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, KeyBioInterval, err)
	}

	cfg := &Config{
		Prefix:      v.GetString(KeyPrefix),
		BotName:     strings.TrimSpace(v.GetString(KeyBotName)),
		AppDir:      v.GetString(KeyAppDir),
		SessionDB:   v.GetString(KeySessionDB),
		BioInterval: interval,
		BioPolicy:   policy,
		BioQuotes:   splitQuotes(v.GetString(KeyBioQuotes)),
		BioSeed:     v.GetUint64(KeyBioSeed),
		LogLevel:    v.GetString(KeyLogLevel),
		LogFormat:   v.GetString(KeyLogFormat),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Prefix) == "" {
		errs = append(errs, errors.New("prefix must not be empty"))
	}
	if c.AppDir == "" {
		errs = append(errs, errors.New("app dir must not be empty"))
	}
	if c.SessionDB == "" {
		errs = append(errs, errors.New("session db must not be empty"))
	}
	if c.BioInterval <= 0 {
		errs = append(errs, fmt.Errorf("bio interval must be positive, got %s", c.BioInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// SettingsDir is where settings.json lives.
func (c *Config) SettingsDir() string {
	return filepath.Join(c.AppDir, "config")
}

// BackupDir sits next to SettingsDir and receives copies of corrupt
// settings documents.
func (c *Config) BackupDir() string {
	return filepath.Join(c.AppDir, "backup")
}

// splitQuotes parses a "|"-separated quote list.
func splitQuotes(raw string) []string {
	var quotes []string
	for _, q := range strings.Split(raw, "|") {
		if q = strings.TrimSpace(q); q != "" {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// parseInterval accepts Go durations ("90s", "2m") or a bare number of
// milliseconds.
func parseInterval(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(raw)
}
