package testutil

import (
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/toyfat/disk"
	"github.com/hupe1980/toyfat/internal/fs"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Fill fills dst with printable bytes other than the '#' sentinel.
func (r *RNG) Fill(dst []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = alphabet[r.rand.Intn(len(alphabet))]
	}
}

// Bytes returns n random content bytes.
func (r *RNG) Bytes(n int) []byte {
	b := make([]byte, n)
	r.Fill(b)
	return b
}

// Name returns a random record name of 1..maxLen bytes.
func (r *RNG) Name(maxLen int) string {
	n := 1 + r.Intn(maxLen)
	return string(r.Bytes(n))
}

// TempDisk creates a zero-filled store in a temporary directory and
// returns its path.
func TempDisk(tb testing.TB) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.disk")
	if err := disk.Create(path); err != nil {
		tb.Fatalf("create disk: %v", err)
	}
	return path
}

// NewFaultyFS returns a host filesystem without any fault configured.
func NewFaultyFS() *fs.FaultyFS {
	return fs.NewFaultyFS(nil)
}
