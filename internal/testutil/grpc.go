package testutil

import (
	"context"
	"log"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type healthService struct {
	grpc_health_v1.UnimplementedHealthServer
	responseFn func(ctx context.Context) (*grpc_health_v1.HealthCheckResponse, error)
}

func (s *healthService) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return s.responseFn(ctx)
}

// Watch sends a single response and ends the stream.
func (s *healthService) Watch(_ *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	resp, err := s.responseFn(stream.Context())
	if err != nil {
		return err
	}
	return stream.Send(resp)
}

func MockGrpcResponse() grpc_health_v1.HealthServer {
	return &healthService{responseFn: func(context.Context) (*grpc_health_v1.HealthCheckResponse, error) {
		return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
	}}
}

func MockDelayedGrpcResponse(delay time.Duration) grpc_health_v1.HealthServer {
	return &healthService{responseFn: func(ctx context.Context) (*grpc_health_v1.HealthCheckResponse, error) {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}}
}

func MockGrpcError(err error) grpc_health_v1.HealthServer {
	return &healthService{responseFn: func(context.Context) (*grpc_health_v1.HealthCheckResponse, error) {
		return nil, err
	}}
}

type Dialer func(context.Context, string) (net.Conn, error)

// GrpcServer serves the health service over an in-memory listener.
func GrpcServer(service grpc_health_v1.HealthServer, options ...grpc.ServerOption) (*grpc.Server, Dialer) {
	server := grpc.NewServer(options...)
	grpc_health_v1.RegisterHealthServer(server, service)
	listen := bufconn.Listen(1024 * 1024)
	go func() {
		if err := server.Serve(listen); err != nil {
			log.Fatalf("Server exited with error: %v", err)
		}
	}()
	return server, func(context.Context, string) (net.Conn, error) {
		return listen.Dial()
	}
}

func GrpcClient(dialer Dialer, options ...grpc.DialOption) *grpc.ClientConn {
	opts := []grpc.DialOption{grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials())}
	opts = append(opts, options...)
	client, err := grpc.NewClient("passthrough://bufnet", opts...)
	if err != nil {
		panic(err)
	}
	return client
}
