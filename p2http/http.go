package p2http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/failsafe-go/p2/tracker"
)

type roundTripper struct {
	next    http.RoundTripper
	tracker tracker.Tracker
}

// NewRoundTripper returns a new http.RoundTripper that records the latency of round trips performed via the
// innerRoundTripper with the tracker. If innerRoundTripper is nil, http.DefaultTransport will be used. Round trips whose
// request context is canceled are not recorded.
func NewRoundTripper(innerRoundTripper http.RoundTripper, t tracker.Tracker) http.RoundTripper {
	if innerRoundTripper == nil {
		innerRoundTripper = http.DefaultTransport
	}
	return &roundTripper{
		next:    innerRoundTripper,
		tracker: t,
	}
}

func (r *roundTripper) RoundTrip(request *http.Request) (*http.Response, error) {
	start := time.Now()
	response, err := r.next.RoundTrip(request)
	if !errors.Is(request.Context().Err(), context.Canceled) {
		r.tracker.Record(time.Since(start))
	}
	return response, err
}

// NewHandler returns a new http.Handler that records how long the next handler takes to serve each request with the
// tracker.
func NewHandler(next http.Handler, t tracker.Tracker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, request)
		t.Record(time.Since(start))
	})
}
