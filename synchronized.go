package p2

import "sync"

// Synchronized is an Estimator that serializes access with a mutex, allowing observations to be added from multiple
// goroutines.
//
// This type is concurrency safe.
type Synchronized struct {
	mu        sync.Mutex
	estimator *Estimator
}

// NewSynchronized creates a new Synchronized estimator for the quantile, which must be within [0, 1]. Returns
// ErrInvalidQuantile if the quantile is out of range.
func NewSynchronized(quantile float64) (*Synchronized, error) {
	e, err := New(quantile)
	if err != nil {
		return nil, err
	}
	return &Synchronized{estimator: e}, nil
}

// Add records an observation.
func (s *Synchronized) Add(value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimator.Add(value)
}

// Value returns the current quantile estimate.
func (s *Synchronized) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.Value()
}

func (s *Synchronized) Quantile() float64 {
	return s.estimator.Quantile()
}

func (s *Synchronized) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.Count()
}

func (s *Synchronized) Filled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.Filled()
}

// State returns a snapshot of the estimator.
func (s *Synchronized) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.State()
}

func (s *Synchronized) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimator.Reset()
}
