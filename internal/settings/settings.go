// Package settings implements the bot's durable key/value configuration.
// The whole mapping lives in memory and is mirrored to a single JSON
// document on disk after every mutation.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultFileName = "settings.json"

	KeyAutoBio  = "AUTO_BIO"
	KeyPresence = "PRESENCE"

	DefaultPresence = "Available"
)

// Document is the on-disk shape of the settings file.
type Document struct {
	Settings map[string]string `json:"settings"`
	Metadata *Metadata         `json:"metadata,omitempty"`
}

// Metadata is written once, when the document is first created.
type Metadata struct {
	CreatedAt time.Time `json:"created_at"`
	SessionID string    `json:"session_id"`
}

// Options configures a Store.
type Options struct {
	// Dir holds the settings document. Created on Initialize.
	Dir string
	// BackupDir receives copies of corrupt documents before they are
	// replaced. Defaults to Dir.
	BackupDir string
	// FileName defaults to DefaultFileName.
	FileName string
	// Defaults seed a freshly created document. AUTO_BIO and PRESENCE are
	// always present even when not listed here.
	Defaults map[string]string
	Logger   zerolog.Logger
}

// Store is a JSON-file-backed settings cache. The cache is authoritative for
// reads; disk is rewritten in full after every Set.
type Store struct {
	dir       string
	backupDir string
	path      string
	defaults  map[string]string
	log       zerolog.Logger

	mu    sync.RWMutex
	cache map[string]string
	meta  *Metadata

	// writeMu serializes disk writes and guards corrupt.
	writeMu sync.Mutex
	corrupt bool
}

// New returns a Store with an empty cache. Call Initialize before use.
func New(opts Options) *Store {
	name := opts.FileName
	if name == "" {
		name = DefaultFileName
	}
	backup := opts.BackupDir
	if backup == "" {
		backup = opts.Dir
	}

	defaults := map[string]string{
		KeyAutoBio:  "yes",
		KeyPresence: DefaultPresence,
	}
	maps.Copy(defaults, opts.Defaults)

	return &Store{
		dir:       opts.Dir,
		backupDir: backup,
		path:      filepath.Join(opts.Dir, name),
		defaults:  defaults,
		log:       opts.Logger,
		cache:     make(map[string]string),
	}
}

// Path returns the location of the settings document.
func (s *Store) Path() string {
	return s.path
}

// Initialize prepares the storage directories and loads the document into
// the cache. A missing document is created from the defaults. An unreadable
// or malformed document leaves the cache empty and the file untouched until
// the next successful write. Initialize never fails; problems are logged and
// the store is always usable afterwards.
func (s *Store) Initialize() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, dir := range []string{s.dir, s.backupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			s.log.Error().Err(err).Str("dir", dir).Msg("creating settings directory")
		}
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.replace(maps.Clone(s.defaults), newMetadata())
		s.corrupt = false
		if err := s.writeLocked(); err != nil {
			s.log.Error().Err(err).Str("path", s.path).Msg("writing default settings")
			return
		}
		s.log.Info().Str("path", s.path).Msg("created default settings")

	case err != nil:
		s.log.Warn().Err(err).Str("path", s.path).Msg("settings unreadable, starting empty")
		s.replace(make(map[string]string), nil)
		s.corrupt = true

	default:
		doc, err := s.decode(data)
		if err != nil {
			s.log.Warn().Err(err).Str("path", s.path).Msg("settings malformed, starting empty")
			s.replace(make(map[string]string), nil)
			s.corrupt = true
			return
		}
		s.replace(doc.Settings, doc.Metadata)
		s.corrupt = false
		s.log.Debug().Str("path", s.path).Int("keys", len(doc.Settings)).Msg("loaded settings")
	}
}

// Get returns the cached value for key, or def when the key is absent.
func (s *Store) Get(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.cache[key]; ok {
		return v
	}
	return def
}

// All returns a copy of every cached setting.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.cache)
}

// Set updates key in the cache, then rewrites the document. The new value
// is visible to Get before the write starts. A failed write is logged and
// returned but never rolls back the cache.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	s.cache[key] = value
	s.mu.Unlock()

	if err := s.Persist(); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("persisting settings, keeping in-memory value")
		return err
	}
	return nil
}

// Persist writes the full cache to disk, replacing the document atomically.
// Concurrent calls are serialized and each one writes the cache as it is
// when its turn comes, so the last write always carries the newest state.
func (s *Store) Persist() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeLocked()
}

func (s *Store) writeLocked() error {
	s.mu.Lock()
	if s.meta == nil {
		s.meta = newMetadata()
	}
	doc := Document{Settings: maps.Clone(s.cache), Metadata: s.meta}
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	data = append(data, '\n')

	if s.corrupt {
		if backup, err := s.backupCorrupt(); err != nil {
			s.log.Warn().Err(err).Str("path", s.path).Msg("could not back up corrupt settings before overwrite")
		} else if backup != "" {
			s.log.Info().Str("backup", backup).Msg("backed up corrupt settings")
		}
	}

	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("writing %s: %w", s.path, err)
	}
	s.corrupt = false
	return nil
}

// backupCorrupt copies the current (unparseable) document into the backup
// directory. Returns "" when there is nothing to copy.
func (s *Store) backupCorrupt() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s.corrupt-%d", filepath.Base(s.path), time.Now().UnixNano())
	dst := filepath.Join(s.backupDir, name)
	if err := atomicWrite(dst, data); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *Store) replace(cache map[string]string, meta *Metadata) {
	if cache == nil {
		cache = make(map[string]string)
	}
	s.mu.Lock()
	s.cache = cache
	s.meta = meta
	s.mu.Unlock()
}

// decode parses a settings document. String values are taken as is;
// other JSON scalars keep their literal text. Nested values are skipped.
func (s *Store) decode(data []byte) (*Document, error) {
	var raw struct {
		Settings map[string]json.RawMessage `json:"settings"`
		Metadata json.RawMessage            `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	doc := &Document{Settings: make(map[string]string, len(raw.Settings))}
	if meta := bytes.TrimSpace(raw.Metadata); len(meta) > 0 && !bytes.Equal(meta, []byte("null")) {
		var m Metadata
		if err := json.Unmarshal(meta, &m); err != nil {
			// Metadata is regenerated on the next write.
			s.log.Warn().Err(err).Msg("ignoring malformed settings metadata")
		} else {
			doc.Metadata = &m
		}
	}
	for key, val := range raw.Settings {
		val = bytes.TrimSpace(val)
		switch {
		case len(val) == 0 || bytes.Equal(val, []byte("null")):
			continue
		case val[0] == '"':
			var str string
			if err := json.Unmarshal(val, &str); err != nil {
				return nil, fmt.Errorf("setting %q: %w", key, err)
			}
			doc.Settings[key] = str
		case val[0] == '{' || val[0] == '[':
			s.log.Warn().Str("key", key).Msg("ignoring non-scalar setting")
		default:
			doc.Settings[key] = string(val)
		}
	}
	return doc, nil
}

func newMetadata() *Metadata {
	return &Metadata{
		CreatedAt: time.Now().UTC(),
		SessionID: uuid.NewString(),
	}
}
