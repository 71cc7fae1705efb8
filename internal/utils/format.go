// Package utils provides shared formatting helpers used by the API handlers.
package utils

import "fmt"

// FormatBytes renders a byte count in binary units, e.g. "1.5 GB".
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatFileSize renders a signed size, treating negatives as zero. Quick
// bucket stats can report -1 when sizes were not sampled.
func FormatFileSize(size int64) string {
	if size < 0 {
		return "0 B"
	}
	return FormatBytes(uint64(size))
}

// FormatSavings renders a compression savings percentage for display,
// clamping noise outside the 0-100 range.
func FormatSavings(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("%.1f%%", pct)
}
