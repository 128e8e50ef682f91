package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/store"
)

// QueryServiceName is the fully qualified gRPC service name.
const QueryServiceName = "gqldyn.v1.QueryService"

// executeMethod is the full method path of QueryService.Execute.
const executeMethod = "/" + QueryServiceName + "/Execute"

// queryProtoFile is the descriptor file QueryService is declared in.
const queryProtoFile = "gqldyn/v1/query.proto"

// QueryServer executes GraphQL requests received over gRPC. Requests and
// responses are google.protobuf.Struct values shaped like the HTTP JSON
// bodies: {"query","operationName","variables"} in, {"data","errors"} out.
type QueryServer struct {
	source SchemaSource
	store  *store.RecordStore
}

// NewQueryServer creates a QueryServer.
func NewQueryServer(source SchemaSource, st *store.RecordStore) *QueryServer {
	return &QueryServer{source: source, store: st}
}

// Execute runs one request. Schema build failures map to
// codes.Unavailable; GraphQL errors are returned in the response body.
func (s *QueryServer) Execute(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFromStruct(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}

	sch, err := s.source.Schema(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "schema unavailable: %v", err)
	}
	result := sch.Execute(schema.WithRecords(ctx, s.store), req)

	out, err := toStruct(result)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

func requestFromStruct(in *structpb.Struct) (schema.Request, error) {
	var req schema.Request
	if in == nil {
		return req, fmt.Errorf("empty request")
	}
	fields := in.GetFields()
	req.Query = fields["query"].GetStringValue()
	req.OperationName = fields["operationName"].GetStringValue()
	if v, ok := fields["variables"]; ok {
		vars := v.GetStructValue()
		if vars == nil {
			return req, fmt.Errorf("variables must be an object")
		}
		req.Variables = vars.AsMap()
	}
	return req, nil
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// queryServiceServer is the handler type checked by grpc.RegisterService.
type queryServiceServer interface {
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func executeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(queryServiceServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: executeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(queryServiceServer).Execute(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// queryServiceDesc describes QueryService without generated stubs; the
// messages are well-known Struct types.
var queryServiceDesc = grpc.ServiceDesc{
	ServiceName: QueryServiceName,
	HandlerType: (*queryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: executeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: queryProtoFile,
}

var descriptorOnce sync.Once

// registerQueryDescriptor adds queryProtoFile to the global registry so
// server reflection can describe QueryService. It has no generated Go
// package, so the descriptor is assembled here.
func registerQueryDescriptor() error {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(queryProtoFile),
		Package:    proto.String("gqldyn.v1"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("QueryService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("Execute"),
				InputType:  proto.String(".google.protobuf.Struct"),
				OutputType: proto.String(".google.protobuf.Struct"),
			}},
		}},
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return fmt.Errorf("build %s: %w", queryProtoFile, err)
	}
	return protoregistry.GlobalFiles.RegisterFile(fd)
}

// NewGRPCServer creates a gRPC server with standard interceptors and
// registers QueryService, health and reflection.
func NewGRPCServer(qs *QueryServer, logger *slog.Logger) *grpc.Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		),
	)

	descriptorOnce.Do(func() {
		if err := registerQueryDescriptor(); err != nil {
			logger.Warn("reflection cannot describe QueryService", "error", err)
		}
	})
	srv.RegisterService(&queryServiceDesc, qs)

	hs := health.NewServer()
	hs.SetServingStatus(QueryServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv
}

// QueryClient calls QueryService.Execute.
type QueryClient struct {
	conn grpc.ClientConnInterface
}

// NewQueryClient wraps an established connection.
func NewQueryClient(conn grpc.ClientConnInterface) *QueryClient {
	return &QueryClient{conn: conn}
}

// Execute sends req and returns the decoded {"data","errors"} response.
func (c *QueryClient) Execute(ctx context.Context, req schema.Request) (map[string]any, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, executeMethod, in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
