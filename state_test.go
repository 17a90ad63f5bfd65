package p2

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/failsafe-go/p2/internal/testutil"
)

// Asserts that a restored estimator produces the same estimates as the original as observations continue to be added.
func TestRestore(t *testing.T) {
	samples := testutil.Samples(testutil.Distributions[3], 42, 2000)

	for _, restoreAfter := range []int{0, 3, 5, 1000} {
		original := MustNew(.9)
		for _, v := range samples[:restoreAfter] {
			original.Add(v)
		}

		restored, err := Restore(original.State())
		require.NoError(t, err)
		assert.Equal(t, original.State(), restored.State())

		for _, v := range samples[restoreAfter:] {
			original.Add(v)
			restored.Add(v)
		}
		assert.Equal(t, original.Value(), restored.Value())
		assert.Equal(t, original.State(), restored.State())
	}
}

// Asserts that states that could not have been produced by an estimator are rejected.
func TestRestoreInvalid(t *testing.T) {
	filled := MustNew(.5)
	for i := 0; i < 20; i++ {
		filled.Add(float64(i))
	}

	tests := []struct {
		name     string
		modify   func(s *State)
		expected error
	}{
		{"quantile", func(s *State) { s.Quantile = 2 }, ErrInvalidQuantile},
		{"increments", func(s *State) { s.Increments[1] = .3 }, ErrInvalidState},
		{"unordered positions", func(s *State) { s.Positions[2] = s.Positions[1] }, ErrInvalidState},
		{"unordered heights", func(s *State) { s.Heights[3] = s.Heights[4] + 1 }, ErrInvalidState},
		{"count", func(s *State) { s.Count = 100 }, ErrInvalidState},
		{"buffer when filled", func(s *State) { s.Buffer = []float64{1} }, ErrInvalidState},
		{"buffer when not filled", func(s *State) { s.Filled = false }, ErrInvalidState},
		{"buffer too large", func(s *State) {
			s.Filled = false
			s.Count = 5
			s.Buffer = []float64{1, 2, 3, 4, 5}
		}, ErrInvalidState},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state := filled.State()
			tc.modify(&state)

			e, err := Restore(state)
			assert.ErrorIs(t, err, tc.expected)
			assert.Nil(t, e)
		})
	}
}

func TestJSON(t *testing.T) {
	for _, count := range []int{0, 2, 50} {
		original := MustNew(.75)
		for i := 0; i < count; i++ {
			original.Add(float64(i * 3 % 17))
		}

		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded Estimator
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, original.State(), decoded.State())
		assert.Equal(t, original.Value(), decoded.Value())
	}
}

func TestJSONInvalid(t *testing.T) {
	var e Estimator
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"quantile": -1}`), &e), ErrInvalidQuantile)
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"quantile": 0.5, "count": 2}`), &e), ErrInvalidState)
	assert.Error(t, json.Unmarshal([]byte(`{"quantile": "x"}`), &e))
}

func TestBinary(t *testing.T) {
	for _, count := range []int{0, 4, 5, 500} {
		original := MustNew(.25)
		for i := 0; i < count; i++ {
			original.Add(float64(i * 7 % 31))
		}

		data, err := original.MarshalBinary()
		require.NoError(t, err)
		if original.Filled() {
			assert.Len(t, data, 2+8*(2+4*markerCount))
		} else {
			assert.Len(t, data, 2+8*(2+count))
		}

		var decoded Estimator
		require.NoError(t, decoded.UnmarshalBinary(data))
		assert.Equal(t, original.State(), decoded.State())
		assert.Equal(t, original.Value(), decoded.Value())
	}
}

func TestBinaryInvalid(t *testing.T) {
	e := MustNew(.5)
	for i := 0; i < 10; i++ {
		e.Add(float64(i))
	}
	data, err := e.MarshalBinary()
	require.NoError(t, err)

	var decoded Estimator
	assert.ErrorIs(t, decoded.UnmarshalBinary(data[:10]), ErrInvalidState)
	assert.ErrorIs(t, decoded.UnmarshalBinary(data[:len(data)-3]), ErrInvalidState)
	assert.ErrorIs(t, decoded.UnmarshalBinary(append(data, 0)), ErrInvalidState)

	badVersion := append([]byte{}, data...)
	badVersion[0] = 9
	assert.ErrorIs(t, decoded.UnmarshalBinary(badVersion), ErrInvalidState)
}
