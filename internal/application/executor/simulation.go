package executor

// simulation.go — simulated order submission.
//
// There is no real settlement integration: submissions model network latency
// and non-deterministic success so the retry/exposure machinery can be
// exercised end to end. This is an explicit simulation mode, not a stand-in
// for exchange protocol behavior.

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/CuongDuong2710/polymarket-arbitrage-bot/internal/domain"
)

const (
	defaultSimLatency     = 50 * time.Millisecond
	defaultSimSuccessRate = 0.9
)

// SimulatedSubmitter implements ports.Submitter with seeded randomness.
type SimulatedSubmitter struct {
	latency     time.Duration
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
	seq int
}

// NewSimulatedSubmitter creates a submitter with the given success rate and
// latency. Zero values fall back to the defaults (0.9 success, 50ms latency).
func NewSimulatedSubmitter(successRate float64, latency time.Duration, seed int64) *SimulatedSubmitter {
	if successRate <= 0 || successRate > 1 {
		successRate = defaultSimSuccessRate
	}
	if latency <= 0 {
		latency = defaultSimLatency
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimulatedSubmitter{
		latency:     latency,
		successRate: successRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Submit waits the simulated latency and then succeeds or fails at random.
func (s *SimulatedSubmitter) Submit(ctx context.Context, trade domain.Trade) (string, error) {
	select {
	case <-time.After(s.latency):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if roll >= s.successRate {
		return "", fmt.Errorf("simulated submission rejected (roll %.3f)", roll)
	}
	return fmt.Sprintf("sim-tx-%06d", seq), nil
}
