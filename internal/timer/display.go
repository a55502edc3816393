package timer

import (
	"fmt"
	"time"
)

// DisplaySeconds rounds d up to whole seconds, so 4.2s shows as 5.
// Negative values show as zero.
func DisplaySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// FormatClock renders d as MM:SS using DisplaySeconds.
func FormatClock(d time.Duration) string {
	secs := DisplaySeconds(d)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
