package win32

import (
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
)

func TestIsIconDirectory(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"ico header", []byte{0, 0, 1, 0, 2, 0, 16, 16}, true},
		{"cursor header", []byte{0, 0, 2, 0, 1, 0}, false},
		{"no images", []byte{0, 0, 1, 0, 0, 0}, false},
		{"png signature", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, false},
		{"too short", []byte{0, 0, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isIconDirectory(tt.buf))
		})
	}
}

func decodeTip(tip [tipCapacity]uint16) string {
	n := 0
	for n < len(tip) && tip[n] != 0 {
		n++
	}
	return string(utf16.Decode(tip[:n]))
}

func TestTooltipText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"ascii", "Whatever", "Whatever"},
		{"unicode", "Синхронизация ✅", "Синхронизация ✅"},
		{"truncated", strings.Repeat("a", 200), strings.Repeat("a", tipCapacity-1)},
		{"embedded nul", "abc\x00def", "abc"},
		{"surrogate at boundary", strings.Repeat("a", tipCapacity-2) + "😀", strings.Repeat("a", tipCapacity-2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tip := tooltipText(tt.in)
			assert.Equal(t, tt.want, decodeTip(tip))
			assert.Zero(t, tip[tipCapacity-1], "tooltip must stay NUL-terminated")
		})
	}
}
