package query

import "time"

// Status is the lifecycle state of a key
type Status int

const (
	// StatusIdle means the key has never been fetched
	StatusIdle Status = iota
	// StatusPending means there is no data yet and a request is in flight
	StatusPending
	// StatusSuccess means the last completed request succeeded
	StatusSuccess
	// StatusError means the last completed request failed
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Snapshot is a point-in-time copy of a key's state
type Snapshot struct {
	Key       Key
	Status    Status
	Data      any
	Err       error
	Fetching  bool
	Stale     bool
	UpdatedAt time.Time

	hasData bool
}

// HasData reports whether a request for the key has ever succeeded
func (s Snapshot) HasData() bool {
	return s.hasData
}

// Loading is true while the first request for the key is in flight
func (s Snapshot) Loading() bool {
	return s.Fetching && !s.hasData
}

// Data returns the snapshot's data as T
func Data[T any](s Snapshot) (T, bool) {
	if !s.hasData {
		var zero T
		return zero, false
	}
	v, ok := s.Data.(T)
	return v, ok
}
