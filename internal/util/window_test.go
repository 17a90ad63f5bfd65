package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Asserts that Record returns -1 until the window wraps, then the previous outcome for the bit.
func TestCountingWindowShouldReturnUninitializedValues(t *testing.T) {
	window := NewCountingWindow(100)
	for i := 0; i < 100; i++ {
		assert.Equal(t, -1, window.Record(true))
	}

	assert.Equal(t, 1, window.Record(false))
	assert.Equal(t, 1, window.Record(true))
	for i := 0; i < 98; i++ {
		window.Record(true)
	}
	assert.Equal(t, 0, window.Record(true))
}

func TestCountingWindow(t *testing.T) {
	window := NewCountingWindow(100)
	assert.Equal(t, 0.0, window.Rate())
	assert.Equal(t, uint(0), window.Count())

	recordOutcomes(window, 50, func(i int) bool {
		return i%3 == 0
	})

	assert.Equal(t, uint(17), window.SetCount())
	assert.Equal(t, .34, window.Rate())
	assert.Equal(t, uint(50), window.Count())

	recordOutcomes(window, 100, func(int) bool {
		return false
	})

	assert.Equal(t, uint(0), window.SetCount())
	assert.Equal(t, 0.0, window.Rate())
	assert.Equal(t, uint(100), window.Count())

	recordOutcomes(window, 25, func(int) bool {
		return true
	})

	assert.Equal(t, uint(25), window.SetCount())
	assert.Equal(t, .25, window.Rate())
	assert.Equal(t, uint(100), window.Count())
}

func TestCountingWindowReset(t *testing.T) {
	window := NewCountingWindow(10)
	recordOutcomes(window, 15, func(int) bool {
		return true
	})
	assert.Equal(t, uint(10), window.SetCount())

	window.Reset()

	assert.Equal(t, uint(0), window.SetCount())
	assert.Equal(t, uint(0), window.Count())
	assert.Equal(t, -1, window.Record(false))
	assert.Equal(t, 0.0, window.Rate())
}

func recordOutcomes(window *CountingWindow, count int, predicate func(index int) bool) {
	for i := 0; i < count; i++ {
		window.Record(predicate(i))
	}
}
