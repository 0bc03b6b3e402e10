package content

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, false},
		{"text", []byte("package main\n"), false},
		{"nul", []byte{'a', 0, 'b'}, true},
		{"utf16 le bom", []byte{0xFF, 0xFE, 'a', 0}, false},
		{"utf16 be bom", []byte{0xFE, 0xFF, 0, 'a'}, false},
		{"utf32 be bom", []byte{0, 0, 0xFE, 0xFF, 0, 0, 0, 'a'}, false},
		{"nul past sample", append(bytes.Repeat([]byte("x"), binarySampleSize), 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBinary(tt.data))
		})
	}
}
