package metrics

import "time"

type NoopRecorder struct{}

func NewNoopRecorder() Recorder { return NoopRecorder{} }

func (NoopRecorder) IncCounter(string, map[string]string) {}

func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
