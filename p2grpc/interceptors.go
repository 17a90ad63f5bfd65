package p2grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/failsafe-go/p2/tracker"
)

// UnaryClientInterceptor returns a gRPC unary client interceptor that records the latency of each call with the tracker.
// Calls that are canceled are not recorded.
func UnaryClientInterceptor(t tracker.Tracker) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		record(t, start, err)
		return err
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that records how long it takes to establish each
// stream with the tracker. Streams that are canceled while being established are not recorded.
func StreamClientInterceptor(t tracker.Tracker) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		start := time.Now()
		clientStream, err := streamer(ctx, desc, cc, method, opts...)
		record(t, start, err)
		return clientStream, err
	}
}

// UnaryServerInterceptor returns a gRPC unary server interceptor that records how long the handler takes with the
// tracker. Handlers that return a canceled error are not recorded.
func UnaryServerInterceptor(t tracker.Tracker) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		record(t, start, err)
		return resp, err
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor that records how long the handler takes to complete
// each stream with the tracker. Handlers that return a canceled error are not recorded.
func StreamServerInterceptor(t tracker.Tracker) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		record(t, start, err)
		return err
	}
}

func record(t tracker.Tracker, start time.Time, err error) {
	if errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled {
		return
	}
	t.Record(time.Since(start))
}
