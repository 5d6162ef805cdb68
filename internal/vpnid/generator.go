// Package vpnid allocates user-facing VPN account identifiers of the form
// VPN-### with a three digit suffix (100-999).
package vpnid

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sync"
	"time"
)

const (
	// Prefix is the constant identifier prefix.
	Prefix = "VPN-"

	minSuffix = 100
	maxSuffix = 999

	// SpaceSize is the number of distinct identifiers that can ever exist.
	SpaceSize = maxSuffix - minSuffix + 1

	defaultProbes = 25
)

// ErrSpaceExhausted is returned when every identifier in the space is taken.
var ErrSpaceExhausted = errors.New("vpnid: identifier space exhausted")

var idPattern = regexp.MustCompile(`^VPN-\d{3}$`)

// Valid reports whether s is a well-formed identifier.
func Valid(s string) bool {
	return idPattern.MatchString(s)
}

// Taken reports whether a candidate identifier is already allocated. The
// caller provides it so the check can run inside the same transaction that
// inserts the new user row.
type Taken func(id string) (bool, error)

// Generator draws free identifiers from the bounded space. It probes random
// candidates first and falls back to a sequential scan, so allocation stays
// cheap while the space is sparse and still terminates when it fills up.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	probes int
}

// New returns a Generator seeded from the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator for tests.
func NewWithSeed(seed int64) *Generator {
	return &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		probes: defaultProbes,
	}
}

// Next returns a free identifier or ErrSpaceExhausted once a full scan finds
// none. Uniqueness is only as strong as the transaction the taken check runs
// in; callers must hold the registration lock while allocating.
func (g *Generator) Next(taken Taken) (string, error) {
	if taken == nil {
		return "", errors.New("vpnid: nil taken check")
	}

	for i := 0; i < g.probes; i++ {
		candidate := format(g.randomSuffix())
		used, err := taken(candidate)
		if err != nil {
			return "", fmt.Errorf("vpnid: collision check: %w", err)
		}
		if !used {
			return candidate, nil
		}
	}

	// Random probing keeps colliding; the space is getting dense. Scan every
	// suffix once, starting from a random offset to avoid herding on VPN-100.
	offset := g.randomSuffix()
	for i := 0; i < SpaceSize; i++ {
		suffix := minSuffix + (offset-minSuffix+i)%SpaceSize
		candidate := format(suffix)
		used, err := taken(candidate)
		if err != nil {
			return "", fmt.Errorf("vpnid: collision check: %w", err)
		}
		if !used {
			return candidate, nil
		}
	}

	return "", ErrSpaceExhausted
}

func (g *Generator) randomSuffix() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return minSuffix + g.rng.Intn(SpaceSize)
}

func format(suffix int) string {
	return fmt.Sprintf("%s%03d", Prefix, suffix)
}
