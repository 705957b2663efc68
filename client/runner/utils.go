package runner

import (
	"fmt"
	"sort"
	"time"
)

// Median of the durations: the middle value, or the mean of the two middle
// values for an even count. The input is not modified.
func Median(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// seconds renders d the way report lines carry latencies
func seconds(d time.Duration) string {
	return fmt.Sprintf("%.4f", d.Seconds())
}
