package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/auth"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/scheduler"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const testSecret = "test-secret"

// mockJobRunner is a function-field implementation of JobRunner.
type mockJobRunner struct {
	runJobFunc  func(ctx context.Context, name string) (jobs.Result, error)
	runOnceFunc func(ctx context.Context) (*scheduler.TickReport, error)
	cadence     map[string]int
}

func (m *mockJobRunner) RunJob(ctx context.Context, name string) (jobs.Result, error) {
	return m.runJobFunc(ctx, name)
}

func (m *mockJobRunner) RunOnce(ctx context.Context) (*scheduler.TickReport, error) {
	return m.runOnceFunc(ctx)
}

func (m *mockJobRunner) Cadence() map[string]int {
	return m.cadence
}

func newMockRunner() *mockJobRunner {
	return &mockJobRunner{
		runJobFunc: func(_ context.Context, name string) (jobs.Result, error) {
			switch name {
			case jobs.PaySalaries:
				return jobs.Result{Job: name, Processed: 3, Changed: 2, Skipped: 1}, nil
			case jobs.CheckBankruptcy:
				return jobs.Result{Job: name}, e.ErrLockHeld
			default:
				return jobs.Result{Job: name}, e.ErrUnknownJob
			}
		},
		runOnceFunc: func(context.Context) (*scheduler.TickReport, error) {
			return &scheduler.TickReport{
				Generation: 7,
				Results:    []jobs.Result{{Job: jobs.ProcessProjects, Processed: 4}},
				Failed:     []string{jobs.ProcessProducts},
			}, errors.New("tick 7: 1 job(s) failed")
		},
		cadence: map[string]int{jobs.ProcessProjects: 1, jobs.PaySalaries: 24},
	}
}

func TestJobHandler_RunJob(t *testing.T) {
	h := NewJobHandler(newMockRunner(), zaptest.NewLogger(t))

	tests := []struct {
		name     string
		job      string
		wantCode codes.Code
	}{
		{name: "missing name", job: "  ", wantCode: codes.InvalidArgument},
		{name: "unknown job", job: "brew-coffee", wantCode: codes.NotFound},
		{name: "lock held", job: jobs.CheckBankruptcy, wantCode: codes.Aborted},
		{name: "success", job: jobs.PaySalaries, wantCode: codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := structpb.NewStruct(map[string]interface{}{"name": tt.job})
			require.NoError(t, err)

			out, err := h.RunJob(context.Background(), req)
			assert.Equal(t, tt.wantCode, status.Code(err))
			if tt.wantCode != codes.OK {
				return
			}
			fields := out.GetFields()
			assert.Equal(t, jobs.PaySalaries, fields["job"].GetStringValue())
			assert.Equal(t, float64(3), fields["processed"].GetNumberValue())
			assert.Equal(t, float64(1), fields["skipped"].GetNumberValue())
		})
	}
}

func TestJobHandler_TickReportsFailures(t *testing.T) {
	h := NewJobHandler(newMockRunner(), zaptest.NewLogger(t))

	out, err := h.Tick(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	fields := out.GetFields()
	assert.Equal(t, float64(7), fields["generation"].GetNumberValue())
	require.Len(t, fields["failed"].GetListValue().GetValues(), 1)
	assert.Equal(t, jobs.ProcessProducts, fields["failed"].GetListValue().GetValues()[0].GetStringValue())

	busy := newMockRunner()
	busy.runOnceFunc = func(context.Context) (*scheduler.TickReport, error) {
		return nil, e.ErrTickInProgress
	}
	_, err = NewJobHandler(busy, zaptest.NewLogger(t)).Tick(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestJobHandler_ListJobsSorted(t *testing.T) {
	h := NewJobHandler(newMockRunner(), zaptest.NewLogger(t))

	out, err := h.ListJobs(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	list := out.GetFields()["jobs"].GetListValue().GetValues()
	require.Len(t, list, 2)
	first := list[0].GetStructValue().GetFields()
	assert.Equal(t, jobs.PaySalaries, first["name"].GetStringValue())
	assert.Equal(t, float64(24), first["every_ticks"].GetNumberValue())
}

func TestMapServiceError(t *testing.T) {
	h := NewJobHandler(newMockRunner(), zaptest.NewLogger(t))

	assert.Equal(t, codes.NotFound, status.Code(h.mapServiceError(e.ErrUnknownJob)))
	assert.Equal(t, codes.Aborted, status.Code(h.mapServiceError(e.ErrTickInProgress)))
	assert.Equal(t, codes.InvalidArgument, status.Code(h.mapServiceError(e.ErrInvalidInput)))
	assert.Equal(t, codes.Internal, status.Code(h.mapServiceError(errors.New("boom"))))
}

func gatewayHandler(t *testing.T) http.Handler {
	t.Helper()
	s := NewServer(0, 0, zaptest.NewLogger(t))
	h := NewJobHandler(newMockRunner(), zaptest.NewLogger(t))
	s.RegisterGRPCHandler(h)
	err := s.RegisterHTTPGateway(context.Background(), h, []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, testSecret)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s.httpServer.Handler
}

func TestGatewayRoutes(t *testing.T) {
	handler := gatewayHandler(t)
	token, err := auth.GenerateToken("ops", testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{name: "list jobs", method: http.MethodGet, path: "/v1/jobs", wantStatus: http.StatusOK, wantBody: jobs.ProcessProjects},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantBody: "go_goroutines"},
		{name: "run without token", method: http.MethodPost, path: "/v1/jobs/pay-salaries:run", wantStatus: http.StatusUnauthorized},
		{name: "run job", method: http.MethodPost, path: "/v1/jobs/pay-salaries:run", token: token, wantStatus: http.StatusOK, wantBody: `"processed":3`},
		{name: "run unknown job", method: http.MethodPost, path: "/v1/jobs/brew-coffee:run", token: token, wantStatus: http.StatusNotFound},
		{name: "run locked job", method: http.MethodPost, path: "/v1/jobs/check-bankruptcy:run", token: token, wantStatus: http.StatusConflict},
		{name: "tick", method: http.MethodPost, path: "/v1/ticks", token: token, wantStatus: http.StatusOK, wantBody: `"generation":7`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != "" {
				assert.Contains(t, strings.ReplaceAll(rec.Body.String(), " ", ""), tt.wantBody)
			}
		})
	}
}

func TestGatewayRunJobBody(t *testing.T) {
	handler := gatewayHandler(t)
	token, err := auth.GenerateToken("ops", testSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/pay-salaries:run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, jobs.PaySalaries, body["job"])
	assert.Equal(t, float64(2), body["changed"])
}

func TestJobServiceOverGRPC(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(0, 0, logger, grpc.UnaryInterceptor(auth.NewAuthInterceptor(testSecret).Unary()))
	s.RegisterGRPCHandler(NewJobHandler(newMockRunner(), logger))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.grpcServer.Serve(lis) }()
	t.Cleanup(s.grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: jobServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.GetStatus())

	client := NewJobClient(conn)
	list, err := client.ListJobs(ctx)
	require.NoError(t, err, "listing is public")
	assert.Len(t, list.GetFields()["jobs"].GetListValue().GetValues(), 2)

	_, err = client.RunJob(ctx, jobs.PaySalaries)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	token, err := auth.GenerateToken("ops", testSecret, time.Hour)
	require.NoError(t, err)
	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

	out, err := client.RunJob(authed, jobs.PaySalaries)
	require.NoError(t, err)
	assert.Equal(t, float64(2), out.GetFields()["changed"].GetNumberValue())

	_, err = client.RunJob(authed, "brew-coffee")
	assert.Equal(t, codes.NotFound, status.Code(err))

	report, err := client.Tick(authed)
	require.NoError(t, err)
	assert.Equal(t, float64(7), report.GetFields()["generation"].GetNumberValue())
}

func TestServer_StartStop(t *testing.T) {
	logger := zaptest.NewLogger(t)
	s := NewServer(50151, 8181, logger)
	h := NewJobHandler(newMockRunner(), logger)
	s.RegisterGRPCHandler(h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.RegisterHTTPGateway(ctx, h, []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, testSecret))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://localhost:8181/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	s.Stop()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for server to stop")
	}

	lis, err := net.Listen("tcp", s.grpcEndpoint)
	require.NoError(t, err, "gRPC endpoint must be free after shutdown")
	_ = lis.Close()
}
