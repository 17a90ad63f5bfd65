package util

import (
	"math"

	"github.com/bits-and-blooms/bitset"
)

// CountingWindow records the last size boolean outcomes using a BitSet, tracking how many of them are set.
//
// This type is not concurrency safe.
type CountingWindow struct {
	bitSet *bitset.BitSet
	size   uint

	// Index to write next entry to
	currentIndex uint
	occupiedBits uint
	setBits      uint
}

// NewCountingWindow returns a CountingWindow that retains the last size outcomes. size must be > 0.
func NewCountingWindow(size uint) *CountingWindow {
	return &CountingWindow{
		bitSet: bitset.New(size),
		size:   size,
	}
}

/*
Record sets the value of the next bit in the window, returning the previous value, else -1 if no previous value was set
for the bit.
*/
func (w *CountingWindow) Record(value bool) int {
	previousValue := -1
	if w.occupiedBits < w.size {
		w.occupiedBits++
	} else if w.bitSet.Test(w.currentIndex) {
		previousValue = 1
	} else {
		previousValue = 0
	}

	w.bitSet.SetTo(w.currentIndex, value)
	w.currentIndex = w.indexAfter(w.currentIndex)

	if value && previousValue != 1 {
		w.setBits++
	} else if !value && previousValue == 1 {
		w.setBits--
	}
	return previousValue
}

func (w *CountingWindow) indexAfter(index uint) uint {
	if index == w.size-1 {
		return 0
	}
	return index + 1
}

// Count returns the number of outcomes in the window.
func (w *CountingWindow) Count() uint {
	return w.occupiedBits
}

// SetCount returns the number of true outcomes in the window.
func (w *CountingWindow) SetCount() uint {
	return w.setBits
}

// Rate returns the ratio of true outcomes in the window, rounded to 2 decimal places, or 0 if the window is empty.
func (w *CountingWindow) Rate() float64 {
	if w.occupiedBits == 0 {
		return 0
	}
	return math.Round(float64(w.setBits)/float64(w.occupiedBits)*100) / 100
}

func (w *CountingWindow) Reset() {
	w.bitSet.ClearAll()
	w.currentIndex = 0
	w.occupiedBits = 0
	w.setBits = 0
}
