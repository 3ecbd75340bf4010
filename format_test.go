package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1, "1 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{5 * (1 << 30), "5.0 GiB"},
		{1 << 40, "1.0 TiB"},
		{1 << 50, "1.0 PiB"},
		{3 << 50, "3.0 PiB"},
		{1 << 60, "1024.0 PiB"},
		{math.MaxInt64, "8192.0 PiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.size), "formatSize(%d)", tt.size)
	}
}
