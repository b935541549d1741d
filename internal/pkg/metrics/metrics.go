package metrics

import "time"

// Recorder is the metrics sink used by the session services.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Metric names.
const (
	SessionTransition    = "session_transition"
	ProviderError        = "provider_error"
	ProviderCall         = "provider_call"
	OrchestrationOutcome = "orchestration_outcome"
	NetworkReset         = "network_reset"
)
