package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncDebit(outcome string)                                     {}
func (n *NoopRecorder) IncGrant(outcome string)                                     {}
func (n *NoopRecorder) IncPlanChange(plan string)                                   {}
func (n *NoopRecorder) IncBalanceCacheHit()                                         {}
func (n *NoopRecorder) IncBalanceCacheMiss()                                        {}
func (n *NoopRecorder) IncGeneration(kind, outcome string)                          {}
func (n *NoopRecorder) ObserveProviderDuration(kind string, duration time.Duration) {}
func (n *NoopRecorder) IncStorefrontCall(operation, outcome string)                 {}
