package playback

import (
	"fmt"
	"time"
)

// FormatTime renders a playback position as m:ss.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
