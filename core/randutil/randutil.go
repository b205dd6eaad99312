// Package randutil generates short unique identifiers and bounded random numbers.
package randutil

import (
	crand "crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var uidStripper = strings.NewReplacer("/", "", "+", "", "=", "")

// ShortUID returns a random identifier made of base64 alphanumerics only.
func ShortUID() string {
	id := uuid.New()
	return uidStripper.Replace(base64.StdEncoding.EncodeToString(id[:]))
}

// Source is a goroutine-safe random number source with a known seed.
type Source struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed uint64
}

// New creates a Source. A zero seed draws one from crypto/rand so that
// unseeded runs differ; any other seed makes selections reproducible.
func New(seed uint64) *Source {
	if seed == 0 {
		seed = cryptoSeed()
	}
	return &Source{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed: seed,
	}
}

func cryptoSeed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return uint64(uuid.New().ID())<<32 | uint64(uuid.New().ID())
	}
	if s := binary.LittleEndian.Uint64(b[:]); s != 0 {
		return s
	}
	return 1
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Intn returns a random integer in [min, max). If max <= min it returns min.
func (s *Source) Intn(min, max int) int {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rng.IntN(max-min)
}

var (
	defaultOnce sync.Once
	defaultSrc  *Source
)

// Default returns the process-wide source, seeded from crypto/rand on first use.
func Default() *Source {
	defaultOnce.Do(func() {
		defaultSrc = New(0)
	})
	return defaultSrc
}

var (
	adjectives = []string{
		"Amber", "Brisk", "Crimson", "Dusky", "Electric", "Frosty", "Golden", "Hidden",
		"Ivory", "Jade", "Lunar", "Misty", "Nimble", "Obsidian", "Proud", "Quiet",
		"Rapid", "Silent", "Tidal", "Velvet", "Wild", "Young", "Zealous",
	}
	nouns = []string{
		"Badger", "Comet", "Falcon", "Glacier", "Harbor", "Island", "Jaguar", "Kestrel",
		"Lantern", "Meadow", "Nebula", "Otter", "Pioneer", "Quarry", "Raven", "Summit",
		"Thunder", "Voyager", "Willow", "Yeti",
	}
)

// Codename returns a two-word name such as "Crimson Falcon".
func (s *Source) Codename() string {
	return adjectives[s.Intn(0, len(adjectives))] + " " + nouns[s.Intn(0, len(nouns))]
}
