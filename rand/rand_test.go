package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniformZeroBoundReturnsZero(t *testing.T) {
	s := New()
	assert.Equal(t, uint32(0), s.Uniform(0))
}

func TestUniformStaysInBound(t *testing.T) {
	s := New()
	for i := 0; i < 1000; i++ {
		v := s.Uniform(7)
		assert.Less(t, v, uint32(7))
	}
}

func TestUniformRefillsAcrossPoolBoundary(t *testing.T) {
	s := New()
	// Drain well past the 256-byte pool to exercise refill().
	for i := 0; i < 100; i++ {
		_ = s.Uniform(1 << 20)
	}
}

func TestBufFillsRequestedLength(t *testing.T) {
	s := New()
	dst := make([]byte, 37)
	s.Buf(dst)
	allZero := true
	for _, b := range dst {
		if b != 0 {
			allZero = false
			break
		}
	}
	assert.False(t, allZero, "expected crypto/rand output, got all zero bytes")
}
