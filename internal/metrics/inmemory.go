package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersCreated    uint64
	UsersDeleted    uint64
	StoreOperations map[string]uint64 // keyed by "operation/outcome"
	HTTPRequests    map[string]uint64 // keyed by "METHOD route status"
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	usersCreated uint64
	usersDeleted uint64

	mu       sync.Mutex
	storeOps map[string]uint64
	requests map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		storeOps: make(map[string]uint64),
		requests: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	storeOps := make(map[string]uint64, len(m.storeOps))
	for k, v := range m.storeOps {
		storeOps[k] = v
	}
	requests := make(map[string]uint64, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}

	return Snapshot{
		UsersCreated:    atomic.LoadUint64(&m.usersCreated),
		UsersDeleted:    atomic.LoadUint64(&m.usersDeleted),
		StoreOperations: storeOps,
		HTTPRequests:    requests,
	}
}

// IncUserCreated increments the user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserDeleted increments the user deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() {
	atomic.AddUint64(&m.usersDeleted, 1)
}

// ObserveStoreOperation counts a store call by operation and outcome.
func (m *InMemoryRecorder) ObserveStoreOperation(operation, outcome string, _ time.Duration) {
	m.mu.Lock()
	m.storeOps[operation+"/"+outcome]++
	m.mu.Unlock()
}

// ObserveHTTPRequest counts a request by method, route and status.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	m.mu.Lock()
	m.requests[requestKey(method, route, status)]++
	m.mu.Unlock()
}

func requestKey(method, route string, status int) string {
	return method + " " + route + " " + strconv.Itoa(status)
}
