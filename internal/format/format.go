package format

import (
	"fmt"
	"os"
	"time"
)

// Size formats bytes as a human-readable string (e.g., "1.5 KiB", "2.0 MiB").
func Size(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Elapsed formats a run duration (e.g., "850ms", "12s", "3m05s", "1h02m").
func Elapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// Source describes a backup source from a single stat: the size of a
// regular file, "directory" for a directory. restic walks the tree itself,
// so directories are never sized here.
func Source(path string) string {
	info, err := os.Stat(path)
	switch {
	case err != nil:
		return "unreadable"
	case info.IsDir():
		return "directory"
	case info.Mode().IsRegular():
		return Size(info.Size())
	default:
		return info.Mode().Type().String()
	}
}
