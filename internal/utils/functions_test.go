package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"10MB", 10 * 1000 * 1000},
		{"14 MB", 14 * 1000 * 1000},
		{"4GiB", 4 * 1024 * 1024 * 1024},
		{"512KiB", 512 * 1024},
		{"100", 100},
		{"1kb", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSizeErrors(t *testing.T) {
	_, err := ParseSize("")
	assert.ErrorIs(t, err, ErrEmptySize)
	_, err = ParseSize("lots")
	assert.Error(t, err)
}

func TestParseHeaderArgs(t *testing.T) {
	got := ParseHeaderArgs([]string{"X-Test: a", "Broken", "Authorization: Basic x:y"})
	assert.Equal(t, map[string]string{"X-Test": "a", "Authorization": "Basic x:y"}, got)
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "0 B/s", FormatSpeed(100, 0))
	assert.Equal(t, "1.0 KiB/s", FormatSpeed(2048, 2))
}
