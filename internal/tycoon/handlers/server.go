// Package handlers provides the admin gRPC and HTTP servers of the worker:
// the JobService, gRPC health, a grpc-gateway mux exposing the same
// operations over HTTP, and the prometheus endpoint.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/auth"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/metrics"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	healthConn   *grpc.ClientConn
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
// The gRPC health service is registered and reports SERVING.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	s := &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		health:       health.NewServer(),
		logger:       logger.Named("server"),
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// RegisterGRPCHandler registers the gRPC handler for the JobService.
func (s *Server) RegisterGRPCHandler(h *JobHandler) {
	RegisterJobServiceServer(s.grpcServer, h)
	s.health.SetServingStatus(jobServiceName, healthpb.HealthCheckResponse_SERVING)
}

// RegisterHTTPGateway sets up the HTTP side: the job routes, /metrics and a
// /healthz endpoint backed by the gRPC health service at the gRPC endpoint.
func (s *Server) RegisterHTTPGateway(_ context.Context, h *JobHandler, dialOpts []grpc.DialOption, jwtSecret string) error {
	conn, err := grpc.NewClient(s.grpcEndpoint, dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to create health client: %w", err)
	}
	s.healthConn = conn

	mux := runtime.NewServeMux(
		runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)),
	)
	if err := registerJobRoutes(mux, h); err != nil {
		return err
	}

	s.httpServer.Handler = auth.HTTPMiddleware(mux, jwtSecret)
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

func registerJobRoutes(mux *runtime.ServeMux, h *JobHandler) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/jobs", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			respond(mux, w, r, func(ctx context.Context) (proto.Message, error) {
				return h.ListJobs(ctx, &emptypb.Empty{})
			})
		}},
		{http.MethodPost, "/v1/jobs/{name}:run", func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			respond(mux, w, r, func(ctx context.Context) (proto.Message, error) {
				return h.runJob(ctx, params["name"])
			})
		}},
		{http.MethodPost, "/v1/ticks", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			respond(mux, w, r, func(ctx context.Context) (proto.Message, error) {
				return h.Tick(ctx, &emptypb.Empty{})
			})
		}},
		{http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
			metrics.Handler().ServeHTTP(w, r)
		}},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

// respond runs call and writes its message, or its gRPC status as an HTTP
// error, with the marshaler the mux picks for the request.
func respond(mux *runtime.ServeMux, w http.ResponseWriter, r *http.Request, call func(context.Context) (proto.Message, error)) {
	_, outbound := runtime.MarshalerForRequest(mux, r)
	msg, err := call(r.Context())
	if err != nil {
		runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
		return
	}
	if msg == nil {
		msg = &structpb.Struct{}
	}
	body, err := outbound.Marshal(msg)
	if err != nil {
		runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
		return
	}
	w.Header().Set("Content-Type", outbound.ContentType(msg))
	_, _ = w.Write(body)
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		if s.httpServer.Handler == nil {
			return
		}
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop marks the services NOT_SERVING and gracefully shuts down both servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if s.healthConn != nil {
		_ = s.healthConn.Close()
	}

	s.logger.Info("Servers stopped")
}
