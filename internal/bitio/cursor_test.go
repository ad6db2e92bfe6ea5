package bitio

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorRoundTrip(t *testing.T) {
	widths := []int{1, 2, 3, 7, 8, 9, 16, 17, 23, 31, 32}
	for _, width := range widths {
		r := rand.New(rand.NewSource(int64(width)))
		var values []uint32
		w := NewWriter()
		for i := 0; i < 200; i++ {
			var v uint32
			if width == 32 {
				v = r.Uint32()
			} else {
				v = r.Uint32() & ((1 << uint(width)) - 1)
			}
			values = append(values, v)
			w.Write(v, width)
		}
		c := NewCursor(w.Bytes())
		for i, want := range values {
			got, ok := c.Read(width)
			assert.True(t, ok, "width=%d index=%d", width, i)
			assert.Equal(t, want, got, "width=%d index=%d", width, i)
		}
	}
}

func TestCursorSeekAndRemaining(t *testing.T) {
	w := NewWriter()
	w.Write(0x5, 4)
	w.Write(0x3, 3)
	w.Write(0x1, 1)
	c := NewCursor(w.Bytes())
	assert.Equal(t, 8, c.Remaining())

	v, ok := c.Read(4)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x5), v)

	c.Seek(0)
	v, ok = c.Read(4)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x5), v)

	c.Skip(3)
	v, ok = c.Read(1)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x1), v)
}

func TestCursorReadPastEnd(t *testing.T) {
	w := NewWriter()
	w.Write(1, 4)
	c := NewCursor(w.Bytes())
	_, ok := c.Read(4)
	assert.True(t, ok)
	// The writer pads to a whole byte, so 4 padding bits remain; a 5-bit
	// read runs past the end of the buffer.
	_, ok = c.Read(5)
	assert.False(t, ok)
}
