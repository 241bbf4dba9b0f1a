package utils

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// ParseSize converts strings like "14MB" or "4GiB" to a byte count.
// KB/MB/GB are powers of 1000, KiB/MiB/GiB powers of 1024.
func ParseSize(value string) (uint64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ErrEmptySize
	}
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	return size, nil
}

func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(float64(bytes)/elapsed)) + "/s"
}
