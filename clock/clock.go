// Package clock is the system clock abstraction the consensus core treats as
// an external collaborator: seconds-since-epoch as a double, no monotonic
// guarantees required.
package clock

import "time"

// Now returns the current wall-clock time as seconds since the Unix epoch,
// with sub-second precision.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
