package core

import "github.com/google/uuid"

// AcquireID returns a process-unique identifier. Built objects carry one so
// log lines emitted while they are replayed can be correlated back to the
// build that produced them.
func AcquireID() string {
	return uuid.NewString()
}
