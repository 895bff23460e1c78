// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Store operation outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeCanceled  = "canceled"
	OutcomeError     = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// User lifecycle
	IncUserCreated()
	IncUserDeleted()

	// Store calls, labelled by operation (create, list, get, delete) and outcome.
	ObserveStoreOperation(operation, outcome string, duration time.Duration)

	// HTTP requests, labelled by route pattern rather than raw path.
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}
