// Package runid assigns a unique identifier to each mining run, used to
// tag log lines and live-progress broadcasts when more than one run's
// output might interleave.
package runid

import "github.com/google/uuid"

// New returns a fresh run identifier.
func New() string {
	return uuid.New().String()
}
