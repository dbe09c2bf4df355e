// Package clock provides the time source used for race timing and
// countdown ticks. Production code uses the real monotonic clock; tests
// inject a clockwork fake.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// NewReal returns a Clock backed by the system clock. Instants carry a
// monotonic reading, so differences are immune to wall-clock jumps.
func NewReal() Clock {
	return clockwork.NewRealClock()
}
