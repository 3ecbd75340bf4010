package main

import "fmt"

var sizeUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB"}

// formatSize formats a byte count in human-readable binary units.
// Whole bytes render without a decimal ("512 B"), everything larger
// with one ("1.5 KiB"). PiB is the last unit; anything beyond it stays
// in PiB ("1024.0 PiB").
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit && exp < len(sizeUnits)-1; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %s", float64(size)/float64(div), sizeUnits[exp])
}
