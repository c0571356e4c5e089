// Package bio rotates the bot's status text ("bio") through a fixed list of
// quotes on a wall-clock interval, persisting each pick in the settings store
// and optionally pushing it to WhatsApp.
package bio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"bwm-bot/internal/settings"
)

const (
	DefaultInterval       = 60 * time.Second
	DefaultPublishTimeout = 30 * time.Second
)

var (
	ErrNoCandidates = errors.New("bio: no candidates")
	ErrBadInterval  = errors.New("bio: interval must be positive")

	// ErrPublisherUnavailable is returned by a Publisher that cannot push
	// right now (e.g. the client is not logged in yet). Logged at debug.
	ErrPublisherUnavailable = errors.New("bio: publisher unavailable")
)

// Store is the part of the settings store the rotator needs.
type Store interface {
	Get(key, def string) string
	Set(key, value string) error
}

// Publisher pushes a status text to the outside world.
type Publisher interface {
	SetStatusMessage(ctx context.Context, msg string) error
}

type Options struct {
	Store      Store
	Candidates []string
	Interval   time.Duration
	Policy     Policy
	// Seed fixes the pick sequence. For PolicyRandom a zero seed means
	// a time-based, non-reproducible sequence.
	Seed      uint64
	Publisher Publisher
	// PublishTimeout bounds each push. Defaults to DefaultPublishTimeout.
	PublishTimeout time.Duration
	Logger         zerolog.Logger
}

// Rotator writes a new PRESENCE value once immediately on Start and then
// every interval until Stop. Cycles never overlap.
type Rotator struct {
	store          Store
	interval       time.Duration
	publisher      Publisher
	publishTimeout time.Duration
	log            zerolog.Logger
	picker         picker

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	cycles atomic.Uint64
}

func New(opts Options) (*Rotator, error) {
	if opts.Store == nil {
		return nil, errors.New("bio: nil store")
	}
	candidates := make([]string, 0, len(opts.Candidates))
	for _, c := range opts.Candidates {
		if strings.TrimSpace(c) != "" {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: %s", ErrBadInterval, interval)
	}
	timeout := opts.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	p, err := newPicker(opts.Policy, candidates, opts.Seed)
	if err != nil {
		return nil, err
	}

	return &Rotator{
		store:          opts.Store,
		interval:       interval,
		publisher:      opts.Publisher,
		publishTimeout: timeout,
		log:            opts.Logger,
		picker:         p,
	}, nil
}

// Start runs one cycle, then schedules the rest. Starting a running
// rotator does nothing.
func (r *Rotator) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel, r.done = cancel, done
	r.mu.Unlock()

	r.log.Info().Dur("interval", r.interval).Msg("bio rotation started")

	// First cycle runs outside mu. A Stop arriving meanwhile cancels
	// loopCtx and waits for done, which only the loop closes.
	r.cycle(loopCtx)
	go r.loop(loopCtx, done)
}

// Stop cancels the schedule and waits for an in-flight cycle to finish.
// Safe to call more than once, or before Start.
func (r *Rotator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel, r.done = nil, nil
	r.log.Info().Uint64("cycles", r.cycles.Load()).Msg("bio rotation stopped")
}

// Running reports whether the rotator has been started and not stopped.
func (r *Rotator) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Cycles returns how many cycles have run since construction.
func (r *Rotator) Cycles() uint64 {
	return r.cycles.Load()
}

func (r *Rotator) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

// cycle picks the next quote and stores it. Failures are logged; the next
// tick retries with a fresh pick.
func (r *Rotator) cycle(ctx context.Context) {
	n := r.cycles.Add(1)
	status := r.picker.next()

	if err := r.store.Set(settings.KeyPresence, status); err != nil {
		r.log.Warn().Err(err).Uint64("cycle", n).Msg("bio update failed")
	} else {
		r.log.Debug().Uint64("cycle", n).Str("bio", status).Msg("bio updated")
	}

	if r.publisher == nil || !AutoBioEnabled(r.store) {
		return
	}
	if err := Publish(ctx, r.publisher, status, r.publishTimeout); err != nil {
		evt := r.log.Warn()
		if errors.Is(err, ErrPublisherUnavailable) {
			evt = r.log.Debug()
		}
		evt.Err(err).Uint64("cycle", n).Msg("bio push failed")
	}
}

// AutoBioEnabled reports whether AUTO_BIO is switched on. Missing means on.
func AutoBioEnabled(s Store) bool {
	switch strings.ToLower(strings.TrimSpace(s.Get(settings.KeyAutoBio, "yes"))) {
	case "yes", "on", "true", "1":
		return true
	}
	return false
}

// Publish pushes status through p, bounded by timeout.
func Publish(ctx context.Context, p Publisher, status string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.SetStatusMessage(ctx, status)
}
