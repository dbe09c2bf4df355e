package race

import (
	"fmt"
	"time"
)

// roundToMicro rounds an elapsed duration to the nearest microsecond,
// half to even. Rounding happens once, before formatting, so the rendered
// fraction never drifts from the stored value.
func roundToMicro(d time.Duration) time.Duration {
	ns := int64(d)
	if ns < 0 {
		ns = 0
	}
	q, r := ns/1000, ns%1000
	if 2*r > 1000 || (2*r == 1000 && q%2 != 0) {
		q++
	}
	return time.Duration(q) * time.Microsecond
}

// FormatDuration renders an elapsed duration as hours:minutes:seconds with
// a six-digit microsecond fraction. The fraction is omitted when it is zero.
func FormatDuration(d time.Duration) string {
	micros := int64(roundToMicro(d) / time.Microsecond)
	frac := micros % 1e6
	secs := micros / 1e6
	h := secs / 3600
	m := secs % 3600 / 60
	s := secs % 60
	if frac == 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d:%02d.%06d", h, m, s, frac)
}
