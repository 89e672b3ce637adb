package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered          uint64
	LoginSuccesses           uint64
	LoginFailures            uint64
	ImagesUploaded           uint64
	ImagesDeduplicated       uint64
	TransformFailures        map[string]uint64
	TransformDurationCount   uint64
	TransformDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	usersRegistered          uint64
	loginSuccesses           uint64
	loginFailures            uint64
	imagesUploaded           uint64
	imagesDeduplicated       uint64
	transformDurationCount   uint64
	transformDurationTotalNs int64

	mu                sync.Mutex
	transformFailures map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		transformFailures: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	failures := make(map[string]uint64, len(m.transformFailures))
	for k, v := range m.transformFailures {
		failures[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		UsersRegistered:          atomic.LoadUint64(&m.usersRegistered),
		LoginSuccesses:           atomic.LoadUint64(&m.loginSuccesses),
		LoginFailures:            atomic.LoadUint64(&m.loginFailures),
		ImagesUploaded:           atomic.LoadUint64(&m.imagesUploaded),
		ImagesDeduplicated:       atomic.LoadUint64(&m.imagesDeduplicated),
		TransformFailures:        failures,
		TransformDurationCount:   atomic.LoadUint64(&m.transformDurationCount),
		TransformDurationTotalNs: atomic.LoadInt64(&m.transformDurationTotalNs),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLoginSuccess increments the successful login counter.
func (m *InMemoryRecorder) IncLoginSuccess() {
	atomic.AddUint64(&m.loginSuccesses, 1)
}

// IncLoginFailure increments the failed login counter.
func (m *InMemoryRecorder) IncLoginFailure() {
	atomic.AddUint64(&m.loginFailures, 1)
}

// IncImageUploaded increments the upload counter.
func (m *InMemoryRecorder) IncImageUploaded() {
	atomic.AddUint64(&m.imagesUploaded, 1)
}

// IncImageDeduplicated increments the dedup counter.
func (m *InMemoryRecorder) IncImageDeduplicated() {
	atomic.AddUint64(&m.imagesDeduplicated, 1)
}

// IncTransformFailure increments a per-kind failure counter.
func (m *InMemoryRecorder) IncTransformFailure(kind string) {
	m.mu.Lock()
	m.transformFailures[kind]++
	m.mu.Unlock()
}

// ObserveTransformDuration records a pipeline duration sample.
func (m *InMemoryRecorder) ObserveTransformDuration(duration time.Duration) {
	atomic.AddUint64(&m.transformDurationCount, 1)
	atomic.AddInt64(&m.transformDurationTotalNs, duration.Nanoseconds())
}
