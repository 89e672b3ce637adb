package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLoginSuccess is a no-op.
func (n *NoopRecorder) IncLoginSuccess() {}

// IncLoginFailure is a no-op.
func (n *NoopRecorder) IncLoginFailure() {}

// IncImageUploaded is a no-op.
func (n *NoopRecorder) IncImageUploaded() {}

// IncImageDeduplicated is a no-op.
func (n *NoopRecorder) IncImageDeduplicated() {}

// IncTransformFailure is a no-op.
func (n *NoopRecorder) IncTransformFailure(kind string) {}

// ObserveTransformDuration is a no-op.
func (n *NoopRecorder) ObserveTransformDuration(duration time.Duration) {}
