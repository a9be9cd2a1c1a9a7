package broker

import (
	"hash/fnv"
	"math/rand"
	"sync"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RNG is the deterministic pseudo-random stream backing order/fill/account
// ID suffixes and the slippage random component. Per the design note on RNG
// determinism, it is threaded through explicit state rather than a process
// global, and each account gets its own child stream derived from the
// broker's seed and the account ID so concurrent accounts still replay
// byte-identically.
type RNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRNG seeds a root RNG.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Child derives an independent RNG seeded from this RNG's current state
// mixed with key (typically an account ID).
func (g *RNG) Child(key string) *RNG {
	g.mu.Lock()
	defer g.mu.Unlock()

	h := fnv.New64a()
	h.Write([]byte(key))
	seed := int64(h.Sum64()) ^ g.r.Int63()
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

// Float64 returns a pseudo-random float64 in [0, 1).
func (g *RNG) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Float64()
}

// token returns an n-character lowercase alphanumeric string.
func (g *RNG) token(n int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, n)
	for i := range b {
		b[i] = idAlphabet[g.r.Intn(len(idAlphabet))]
	}
	return string(b)
}
