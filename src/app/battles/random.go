package battles

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Randomizer picks deck positions. Implementations must be safe for concurrent use.
type Randomizer interface {
	IntN(n int) int
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandom returns a Randomizer seeded deterministically.
func NewRandom(seed1, seed2 uint64) Randomizer {
	return &lockedRand{r: rand.New(rand.NewPCG(seed1, seed2))}
}

// NewSeededRandom seeds a Randomizer from crypto/rand.
func NewSeededRandom() (Randomizer, error) {
	var b [16]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewRandom(binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:])), nil
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
