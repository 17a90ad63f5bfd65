package p2

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidState is returned when restoring an Estimator from a State that could not have been produced by an Estimator.
var ErrInvalidState = errors.New("invalid estimator state")

const stateVersion byte = 1

// State is a snapshot of an Estimator that can be used to restore it later, such as after a process restart. Buffer holds
// the observations recorded while bootstrapping and is empty once Filled. The marker arrays are only meaningful once Filled.
type State struct {
	Quantile   float64              `json:"quantile"`
	Count      uint64               `json:"count"`
	Filled     bool                 `json:"filled"`
	Buffer     []float64            `json:"buffer,omitempty"`
	Positions  [markerCount]int64   `json:"positions"`
	Desired    [markerCount]float64 `json:"desired"`
	Increments [markerCount]float64 `json:"increments"`
	Heights    [markerCount]float64 `json:"heights"`
}

// State returns a snapshot of the Estimator.
func (e *Estimator) State() State {
	s := State{
		Quantile:   e.quantile,
		Count:      e.count,
		Filled:     e.phase == filled,
		Positions:  e.positions,
		Desired:    e.desired,
		Increments: e.increments,
		Heights:    e.heights,
	}
	if e.phase == bootstrapping && e.count > 0 {
		s.Buffer = append([]float64(nil), e.buffer[:e.count]...)
	}
	return s
}

// Restore returns a new Estimator from the state. Returns ErrInvalidQuantile or ErrInvalidState if the state is not
// consistent.
func Restore(state State) (*Estimator, error) {
	e, err := New(state.Quantile)
	if err != nil {
		return nil, err
	}
	if err := e.restore(state); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Estimator) restore(state State) error {
	if !state.Filled {
		if state.Count >= markerCount || uint64(len(state.Buffer)) != state.Count {
			return fmt.Errorf("%w: %d buffered observations for a count of %d", ErrInvalidState, len(state.Buffer), state.Count)
		}
		e.Reset()
		e.count = state.Count
		copy(e.buffer[:], state.Buffer)
		return nil
	}

	if len(state.Buffer) != 0 {
		return fmt.Errorf("%w: filled state has buffered observations", ErrInvalidState)
	}
	if state.Increments != incrementsFor(state.Quantile) {
		return fmt.Errorf("%w: increments do not match quantile %v", ErrInvalidState, state.Quantile)
	}
	if state.Count < markerCount || state.Positions[0] != 0 || uint64(state.Positions[markerCount-1]) != state.Count-1 {
		return fmt.Errorf("%w: positions %v do not match a count of %d", ErrInvalidState, state.Positions, state.Count)
	}
	for i := 1; i < markerCount; i++ {
		if state.Positions[i] <= state.Positions[i-1] {
			return fmt.Errorf("%w: positions %v are not increasing", ErrInvalidState, state.Positions)
		}
		if state.Heights[i] < state.Heights[i-1] {
			return fmt.Errorf("%w: heights %v are not increasing", ErrInvalidState, state.Heights)
		}
	}

	e.phase = filled
	e.count = state.Count
	e.buffer = [markerCount]float64{}
	e.positions = state.Positions
	e.desired = state.Desired
	e.heights = state.Heights
	return nil
}

// MarshalJSON encodes the Estimator's State as JSON.
func (e *Estimator) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.State())
}

// UnmarshalJSON replaces the Estimator with one restored from a JSON encoded State.
func (e *Estimator) UnmarshalJSON(data []byte) error {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	restored, err := Restore(state)
	if err != nil {
		return err
	}
	*e = *restored
	return nil
}

// MarshalBinary encodes the Estimator as a version byte, a flags byte, the quantile and count, followed by either the
// buffered observations or the positions, desired positions, increments, and heights. Values are little endian.
func (e *Estimator) MarshalBinary() ([]byte, error) {
	s := e.State()
	var flags byte
	if s.Filled {
		flags |= 1
	}

	buf := make([]byte, 0, 2+8*(2+4*markerCount))
	buf = append(buf, stateVersion, flags)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(s.Quantile))
	buf = binary.LittleEndian.AppendUint64(buf, s.Count)
	if !s.Filled {
		for _, v := range s.Buffer {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		return buf, nil
	}
	for _, p := range s.Positions {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(p))
	}
	for _, values := range [][markerCount]float64{s.Desired, s.Increments, s.Heights} {
		for _, v := range values {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf, nil
}

// UnmarshalBinary replaces the Estimator with one decoded from data produced by MarshalBinary.
func (e *Estimator) UnmarshalBinary(data []byte) error {
	if len(data) < 18 {
		return fmt.Errorf("%w: %d bytes is too short", ErrInvalidState, len(data))
	}
	if data[0] != stateVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidState, data[0])
	}

	var s State
	s.Filled = data[1]&1 == 1
	r := reader{data: data[2:]}
	s.Quantile = r.readFloat64()
	s.Count = r.readUint64()
	if s.Filled {
		for i := range s.Positions {
			s.Positions[i] = int64(r.readUint64())
		}
		for _, values := range []*[markerCount]float64{&s.Desired, &s.Increments, &s.Heights} {
			for i := range values {
				values[i] = r.readFloat64()
			}
		}
	} else if s.Count < markerCount {
		for i := uint64(0); i < s.Count; i++ {
			s.Buffer = append(s.Buffer, r.readFloat64())
		}
	}
	if r.short {
		return fmt.Errorf("%w: truncated data", ErrInvalidState)
	}
	if len(r.data) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidState, len(r.data))
	}

	restored, err := Restore(s)
	if err != nil {
		return err
	}
	*e = *restored
	return nil
}

// reader consumes little endian words, recording whether the data ran out.
type reader struct {
	data  []byte
	short bool
}

func (r *reader) readUint64() uint64 {
	if len(r.data) < 8 {
		r.short = true
		r.data = nil
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data)
	r.data = r.data[8:]
	return v
}

func (r *reader) readFloat64() float64 {
	return math.Float64frombits(r.readUint64())
}
