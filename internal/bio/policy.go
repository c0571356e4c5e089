package bio

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Policy selects how the next quote is chosen.
type Policy string

const (
	// PolicyRandom picks uniformly at random.
	PolicyRandom Policy = "random"
	// PolicyRoundRobin walks the list in order, wrapping around.
	PolicyRoundRobin Policy = "round-robin"
)

// ParsePolicy accepts the policy names used in configuration. Empty means
// PolicyRandom.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random":
		return PolicyRandom, nil
	case "round-robin", "roundrobin", "rr":
		return PolicyRoundRobin, nil
	}
	return "", fmt.Errorf("bio: unknown policy %q", s)
}

type picker interface {
	next() string
}

func newPicker(p Policy, candidates []string, seed uint64) (picker, error) {
	switch p {
	case "", PolicyRandom:
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return &randomPicker{
			candidates: candidates,
			rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		}, nil
	case PolicyRoundRobin:
		return &roundRobinPicker{
			candidates: candidates,
			pos:        int(seed % uint64(len(candidates))),
		}, nil
	}
	return nil, fmt.Errorf("bio: unknown policy %q", p)
}

// Pickers are only driven from one goroutine at a time (Start, then the
// loop), so they carry no locking.

type randomPicker struct {
	candidates []string
	rng        *rand.Rand
}

func (p *randomPicker) next() string {
	return p.candidates[p.rng.IntN(len(p.candidates))]
}

type roundRobinPicker struct {
	candidates []string
	pos        int
}

func (p *roundRobinPicker) next() string {
	v := p.candidates[p.pos]
	p.pos = (p.pos + 1) % len(p.candidates)
	return v
}
