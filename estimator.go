// Package p2 provides streaming quantile estimation in constant memory using the P² algorithm.
package p2

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidQuantile is returned when an Estimator is created for a quantile outside of [0, 1].
var ErrInvalidQuantile = errors.New("quantile must be within [0, 1]")

// markerCount is the number of markers tracked by an Estimator once it's filled.
const markerCount = 5

type phase uint8

const (
	bootstrapping phase = iota
	filled
)

// Marker is a point on the estimated cumulative distribution of the observed stream.
type Marker struct {
	// Position is the actual rank of the marker among the observations seen so far.
	Position int64
	// Desired is the rank the marker should occupy for its target quantile.
	Desired float64
	// Increment is added to Desired for each observation.
	Increment float64
	// Height is the estimated observation value at Position.
	Height float64
}

// Estimator estimates a single quantile of a stream of observations using the P² (piecewise-parabolic) algorithm by Jain
// and Chlamtac. It uses constant memory regardless of how many observations are added: the first five observations are
// buffered, after which five markers approximate the distribution around the target quantile.
//
// Observations must be finite. This type is not concurrency safe, see Synchronized.
type Estimator struct {
	quantile float64
	phase    phase
	count    uint64

	// Observations recorded while bootstrapping, in arrival order
	buffer [markerCount]float64

	positions  [markerCount]int64
	desired    [markerCount]float64
	increments [markerCount]float64
	heights    [markerCount]float64
}

// New creates a new Estimator for the quantile, which must be within [0, 1]. For example, a quantile of .9 estimates
// the p90 of the observations. Returns ErrInvalidQuantile if the quantile is out of range.
func New(quantile float64) (*Estimator, error) {
	// Written as a negation so that NaN is rejected
	if !(quantile >= 0 && quantile <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuantile, quantile)
	}
	e := &Estimator{
		quantile:   quantile,
		increments: incrementsFor(quantile),
	}
	e.Reset()
	return e, nil
}

// MustNew is like New but panics if the quantile is invalid.
func MustNew(quantile float64) *Estimator {
	e, err := New(quantile)
	if err != nil {
		panic(err)
	}
	return e
}

func incrementsFor(quantile float64) [markerCount]float64 {
	return [markerCount]float64{0, quantile / 2, quantile, (1 + quantile) / 2, 1}
}

func desiredFor(quantile float64) [markerCount]float64 {
	return [markerCount]float64{0, 2 * quantile, 4 * quantile, 2 + 2*quantile, 4}
}

// Add records an observation.
func (e *Estimator) Add(value float64) {
	if e.phase == bootstrapping {
		e.buffer[e.count] = value
		e.count++
		if e.count == markerCount {
			e.heights = e.buffer
			slices.Sort(e.heights[:])
			e.phase = filled
		}
		return
	}

	e.count++
	k := e.locate(value)
	for i := range e.positions {
		if i > k {
			e.positions[i]++
		}
		e.desired[i] += e.increments[i]
	}
	e.adjust()
}

// locate returns the cell k that contains the value, such that heights[k] <= value < heights[k+1], extending the outer
// markers when the value falls outside of the observed range.
func (e *Estimator) locate(value float64) int {
	last := markerCount - 1
	if value < e.heights[0] {
		e.heights[0] = value
		return 0
	}
	if value >= e.heights[last] {
		e.heights[last] = value
		return last - 1
	}
	for k := 0; k < last; k++ {
		if e.heights[k] <= value && value < e.heights[k+1] {
			return k
		}
	}
	return last - 1
}

// adjust moves any interior markers that drifted at least one rank away from their desired position, provided the move
// does not collide with a neighboring marker.
func (e *Estimator) adjust() {
	for i := 1; i < markerCount-1; i++ {
		n := e.positions[i]
		np1 := e.positions[i+1]
		nm1 := e.positions[i-1]
		d := e.desired[i] - float64(n)

		if (d >= 1 && np1-n > 1) || (d <= -1 && nm1-n < -1) {
			sign := 1
			if d < 0 {
				sign = -1
			}

			q := e.heights[i]
			qp1 := e.heights[i+1]
			qm1 := e.heights[i-1]
			candidate := parabolic(float64(sign), qp1, q, qm1, float64(np1), float64(n), float64(nm1))
			if qm1 < candidate && candidate < qp1 {
				e.heights[i] = candidate
			} else {
				e.heights[i] = linear(float64(sign), e.heights[i+sign], q, e.positions[i+sign], n)
			}
			e.positions[i] += int64(sign)
		}
	}
}

// parabolic predicts the height of a marker moved by d using a parabola through the marker and its two neighbors.
func parabolic(d, qp1, q, qm1, np1, n, nm1 float64) float64 {
	a := d / (np1 - nm1)
	b1 := (n - nm1 + d) * (qp1 - q) / (np1 - n)
	b2 := (np1 - n - d) * (q - qm1) / (n - nm1)
	return q + a*(b1+b2)
}

// linear predicts the height of a marker moved by d towards the neighbor at height qd and position nd.
func linear(d, qd, q float64, nd, n int64) float64 {
	return q + d*(qd-q)/float64(nd-n)
}

// Value returns the current quantile estimate. Before five observations have been added, the estimate is taken from the
// sorted observations, and is 0 if there are none. For quantiles 0 and 1, the estimate is the minimum and maximum
// observation.
func (e *Estimator) Value() float64 {
	if e.phase == bootstrapping {
		switch e.count {
		case 0:
			return 0
		case 1:
			return e.buffer[0]
		}
		sorted := e.buffer
		values := sorted[:e.count]
		slices.Sort(values)
		rank := min(int(e.quantile*float64(e.count)), len(values)-1)
		return values[rank]
	}

	switch e.quantile {
	case 0:
		return e.heights[0]
	case 1:
		return e.heights[markerCount-1]
	}
	return e.heights[2]
}

// Quantile returns the quantile being estimated.
func (e *Estimator) Quantile() float64 {
	return e.quantile
}

// Count returns the number of observations added.
func (e *Estimator) Count() uint64 {
	return e.count
}

// Filled returns whether enough observations have been added to seed the markers.
func (e *Estimator) Filled() bool {
	return e.phase == filled
}

// Min returns the smallest observation added, or 0 if there are none.
func (e *Estimator) Min() float64 {
	if e.phase == filled {
		return e.heights[0]
	}
	if e.count == 0 {
		return 0
	}
	return slices.Min(e.buffer[:e.count])
}

// Max returns the largest observation added, or 0 if there are none.
func (e *Estimator) Max() float64 {
	if e.phase == filled {
		return e.heights[markerCount-1]
	}
	if e.count == 0 {
		return 0
	}
	return slices.Max(e.buffer[:e.count])
}

// Markers returns a copy of the markers. The markers are only meaningful once the Estimator is Filled.
func (e *Estimator) Markers() [markerCount]Marker {
	var markers [markerCount]Marker
	for i := range markers {
		markers[i] = Marker{
			Position:  e.positions[i],
			Desired:   e.desired[i],
			Increment: e.increments[i],
			Height:    e.heights[i],
		}
	}
	return markers
}

// Reset discards all observations, returning the Estimator to its initial state for the same quantile.
func (e *Estimator) Reset() {
	e.phase = bootstrapping
	e.count = 0
	e.buffer = [markerCount]float64{}
	e.heights = [markerCount]float64{}
	e.desired = desiredFor(e.quantile)
	for i := range e.positions {
		e.positions[i] = int64(i)
	}
}
