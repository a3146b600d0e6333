package server

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/jobs"
	"github.com/joseph-ayodele/repair-jobsheets/internal/utils"
)

const (
	LookupServiceName = "jobsheet.v1.JobLookupService"

	GetJobMethod     = "/" + LookupServiceName + "/GetJob"
	SearchJobsMethod = "/" + LookupServiceName + "/SearchJobs"
)

// JobLookupServer is the read-only gRPC surface used by front-desk tools.
// Requests and responses are google.protobuf.Struct messages:
//
//	GetJob     {"id": "RB001"}  -> {"job": {...}}
//	SearchJobs {"query": "..."} -> {"jobs": [...], "count": n}
type JobLookupServer interface {
	GetJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SearchJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var JobLookupServiceDesc = grpc.ServiceDesc{
	ServiceName: LookupServiceName,
	HandlerType: (*JobLookupServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetJob", Handler: lookupHandler(GetJobMethod, JobLookupServer.GetJob)},
		{MethodName: "SearchJobs", Handler: lookupHandler(SearchJobsMethod, JobLookupServer.SearchJobs)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobsheet/v1/lookup.proto",
}

func RegisterJobLookupServer(s grpc.ServiceRegistrar, srv JobLookupServer) {
	s.RegisterService(&JobLookupServiceDesc, srv)
}

type lookupMethod func(JobLookupServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func lookupHandler(fullMethod string, call lookupMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(JobLookupServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(JobLookupServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type LookupService struct {
	jobs   *jobs.Service
	logger *slog.Logger
}

func NewLookupService(svc *jobs.Service, logger *slog.Logger) *LookupService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupService{jobs: svc, logger: logger}
}

func (s *LookupService) GetJob(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetFields()["id"].GetStringValue())
	if id == "" {
		s.logger.Error("get job request missing id")
		return nil, common.InvalidArgumentError("id is required")
	}

	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		s.logger.Warn("grpc.jobs.get.failed", "id", id, "error", err)
		return nil, common.ToGRPC(err)
	}
	js, err := utils.JobToStruct(job)
	if err != nil {
		return nil, common.InternalError("encode job: " + err.Error())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"job": structpb.NewStructValue(js),
	}}, nil
}

func (s *LookupService) SearchJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query := strings.TrimSpace(req.GetFields()["query"].GetStringValue())
	if query == "" {
		return nil, common.InvalidArgumentError("query is required")
	}

	found, err := s.jobs.Search(ctx, query)
	if err != nil {
		s.logger.Warn("grpc.jobs.search.failed", "error", err)
		return nil, common.ToGRPC(err)
	}
	list, err := utils.JobsToList(found)
	if err != nil {
		return nil, common.InternalError("encode jobs: " + err.Error())
	}
	s.logger.Info("grpc.jobs.search.ok", "count", len(found))
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"jobs":  structpb.NewListValue(list),
		"count": structpb.NewNumberValue(float64(len(found))),
	}}, nil
}

// UnaryLogger logs every unary call with its status code.
func UnaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		logger.Info("grpc.request", "method", info.FullMethod, "code", status.Code(err).String())
		return resp, err
	}
}
