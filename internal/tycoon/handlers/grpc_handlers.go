package handlers

import (
	"context"
	"strings"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/auth"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/scheduler"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// JobRunner defines the scheduler operations the admin surface invokes.
type JobRunner interface {
	RunJob(ctx context.Context, name string) (jobs.Result, error)
	RunOnce(ctx context.Context) (*scheduler.TickReport, error)
	Cadence() map[string]int
}

// JobHandler serves JobService over gRPC and the HTTP gateway.
type JobHandler struct {
	runner JobRunner
	logger *zap.Logger
}

// NewJobHandler constructs a new JobHandler with the given runner and logger.
func NewJobHandler(runner JobRunner, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		runner: runner,
		logger: logger.Named("grpc_handler"),
	}
}

// RunJob runs the job named in the request once, under its lock.
func (h *JobHandler) RunJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name := strings.TrimSpace(req.GetFields()["name"].GetStringValue())
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "job name required")
	}
	return h.runJob(ctx, name)
}

func (h *JobHandler) runJob(ctx context.Context, name string) (*structpb.Struct, error) {
	h.logger.Info("Job triggered", zap.String("job", name), zap.String("subject", auth.Subject(ctx)))
	res, err := h.runner.RunJob(ctx, name)
	if err != nil {
		return nil, h.mapServiceError(err)
	}
	out, err := resultToProto(res)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Tick runs every job once regardless of cadence. Failed jobs are listed in
// the report rather than failing the call.
func (h *JobHandler) Tick(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	h.logger.Info("Tick triggered", zap.String("subject", auth.Subject(ctx)))
	report, err := h.runner.RunOnce(ctx)
	if report == nil {
		return nil, h.mapServiceError(err)
	}
	if err != nil {
		h.logger.Warn("Triggered tick had failures", zap.Error(err))
	}
	out, err := reportToProto(report)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ListJobs returns every registered job with its cadence in ticks.
func (h *JobHandler) ListJobs(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := cadenceToProto(h.runner.Cadence())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
