package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Debits                  map[string]uint64
	Grants                  map[string]uint64
	PlanChanges             map[string]uint64
	BalanceCacheHits        uint64
	BalanceCacheMisses      uint64
	Generations             map[string]uint64 // keyed "kind/outcome"
	ProviderCalls           uint64
	ProviderDurationTotalNs int64
	StorefrontCalls         map[string]uint64 // keyed "operation/outcome"
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu              sync.Mutex
	debits          map[string]uint64
	grants          map[string]uint64
	planChanges     map[string]uint64
	generations     map[string]uint64
	storefrontCalls map[string]uint64

	balanceCacheHits        uint64
	balanceCacheMisses      uint64
	providerCalls           uint64
	providerDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		debits:          make(map[string]uint64),
		grants:          make(map[string]uint64),
		planChanges:     make(map[string]uint64),
		generations:     make(map[string]uint64),
		storefrontCalls: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Debits:                  copyCounts(m.debits),
		Grants:                  copyCounts(m.grants),
		PlanChanges:             copyCounts(m.planChanges),
		BalanceCacheHits:        atomic.LoadUint64(&m.balanceCacheHits),
		BalanceCacheMisses:      atomic.LoadUint64(&m.balanceCacheMisses),
		Generations:             copyCounts(m.generations),
		ProviderCalls:           atomic.LoadUint64(&m.providerCalls),
		ProviderDurationTotalNs: atomic.LoadInt64(&m.providerDurationTotalNs),
		StorefrontCalls:         copyCounts(m.storefrontCalls),
	}
}

// IncDebit increments the debit counter for an outcome.
func (m *InMemoryRecorder) IncDebit(outcome string) {
	m.inc(m.debits, outcome)
}

// IncGrant increments the grant counter for an outcome.
func (m *InMemoryRecorder) IncGrant(outcome string) {
	m.inc(m.grants, outcome)
}

// IncPlanChange increments the plan change counter.
func (m *InMemoryRecorder) IncPlanChange(plan string) {
	m.inc(m.planChanges, plan)
}

// IncBalanceCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncBalanceCacheHit() {
	atomic.AddUint64(&m.balanceCacheHits, 1)
}

// IncBalanceCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncBalanceCacheMiss() {
	atomic.AddUint64(&m.balanceCacheMisses, 1)
}

// IncGeneration increments the generation counter.
func (m *InMemoryRecorder) IncGeneration(kind, outcome string) {
	m.inc(m.generations, kind+"/"+outcome)
}

// ObserveProviderDuration records provider call duration.
func (m *InMemoryRecorder) ObserveProviderDuration(_ string, duration time.Duration) {
	atomic.AddUint64(&m.providerCalls, 1)
	atomic.AddInt64(&m.providerDurationTotalNs, duration.Nanoseconds())
}

// IncStorefrontCall increments the storefront call counter.
func (m *InMemoryRecorder) IncStorefrontCall(operation, outcome string) {
	m.inc(m.storefrontCalls, operation+"/"+outcome)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, key string) {
	m.mu.Lock()
	counts[key]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
