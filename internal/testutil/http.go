package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"
)

func MockResponse(statusCode int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	}))
}

func MockDelayedResponse(statusCode int, body string, delay time.Duration) *httptest.Server {
	return httptest.NewServer(MockDelayedHandler(statusCode, body, delay))
}

// MockDelayedHandler responds after the delay, or not at all if the request is canceled first.
func MockDelayedHandler(statusCode int, body string, delay time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, request *http.Request) {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			w.WriteHeader(statusCode)
			fmt.Fprint(w, body)
		case <-request.Context().Done():
			timer.Stop()
		}
	})
}
