// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by recorders.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient"
	OutcomeRejected     = "rejected"
	OutcomeError        = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Ledger metrics
	IncDebit(outcome string)
	IncGrant(outcome string)
	IncPlanChange(plan string)
	IncBalanceCacheHit()
	IncBalanceCacheMiss()

	// Generation metrics
	IncGeneration(kind, outcome string)
	ObserveProviderDuration(kind string, duration time.Duration)

	// Storefront metrics
	IncStorefrontCall(operation, outcome string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
