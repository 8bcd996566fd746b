package handlers

import (
	"errors"
	"fmt"
	"sort"

	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/jobs"
	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/scheduler"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func resultMap(r jobs.Result) map[string]interface{} {
	return map[string]interface{}{
		"job":       r.Job,
		"processed": r.Processed,
		"changed":   r.Changed,
		"skipped":   r.Skipped,
		"failed":    r.Failed,
	}
}

// resultToProto converts a job result into a protobuf Struct.
func resultToProto(r jobs.Result) (*structpb.Struct, error) {
	return structpb.NewStruct(resultMap(r))
}

// reportToProto converts a tick report into a protobuf Struct.
func reportToProto(report *scheduler.TickReport) (*structpb.Struct, error) {
	results := make([]interface{}, len(report.Results))
	for i, r := range report.Results {
		results[i] = resultMap(r)
	}
	return structpb.NewStruct(map[string]interface{}{
		"generation": report.Generation,
		"results":    results,
		"locked":     stringList(report.Locked),
		"failed":     stringList(report.Failed),
	})
}

// cadenceToProto lists jobs by name with their tick spacing.
func cadenceToProto(cadence map[string]int) (*structpb.Struct, error) {
	names := make([]string, 0, len(cadence))
	for name := range cadence {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]interface{}, len(names))
	for i, name := range names {
		list[i] = map[string]interface{}{"name": name, "every_ticks": cadence[name]}
	}
	return structpb.NewStruct(map[string]interface{}{"jobs": list})
}

func stringList(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// mapServiceError maps scheduler and job errors to gRPC status codes.
func (h *JobHandler) mapServiceError(err error) error {
	switch {
	case errors.Is(err, e.ErrUnknownJob), errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrLockHeld), errors.Is(err, e.ErrTickInProgress):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, fmt.Sprintf("internal server error: %v", err))
	}
}
