package handlers

import (
	"context"

	"github.com/thong2085/dev-tycoon-sub000/internal/tycoon/auth"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const jobServiceName = "tycoon.admin.v1.JobService"

// JobServiceServer is the admin service that triggers simulation jobs.
// Messages are protobuf well-known types, so no generated code is needed.
type JobServiceServer interface {
	// RunJob expects {"name": "<job>"} and returns the job result.
	RunJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Tick runs every job once and returns the tick report.
	Tick(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// ListJobs returns the job names and their tick cadence.
	ListJobs(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterJobServiceServer registers srv on s.
func RegisterJobServiceServer(s grpc.ServiceRegistrar, srv JobServiceServer) {
	s.RegisterService(&jobServiceDesc, srv)
}

var jobServiceDesc = grpc.ServiceDesc{
	ServiceName: jobServiceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RunJob", Handler: runJobHandler},
		{MethodName: "Tick", Handler: tickHandler},
		{MethodName: "ListJobs", Handler: listJobsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tycoon/admin/v1/jobs.proto",
}

func runJobHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).RunJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: auth.RunJobMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobServiceServer).RunJob(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func tickHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).Tick(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: auth.TickMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobServiceServer).Tick(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listJobsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).ListJobs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: auth.ListJobsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(JobServiceServer).ListJobs(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// JobClient calls a remote JobService.
type JobClient struct {
	cc grpc.ClientConnInterface
}

func NewJobClient(cc grpc.ClientConnInterface) *JobClient {
	return &JobClient{cc: cc}
}

func (c *JobClient) RunJob(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, auth.RunJobMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobClient) Tick(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, auth.TickMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobClient) ListJobs(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, auth.ListJobsMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
