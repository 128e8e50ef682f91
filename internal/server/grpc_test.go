package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/aleics/gql-dyn/internal/fixtures"
	"github.com/aleics/gql-dyn/internal/schema"
	"github.com/aleics/gql-dyn/internal/store"
	"github.com/aleics/gql-dyn/internal/testutil"
)

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func startGRPC(t *testing.T, source SchemaSource) *grpc.ClientConn {
	t.Helper()
	st := store.New()
	records, err := fixtures.Generate(fixtures.DefaultCatalog(), 3, testutil.NewSequentialIDs("r"))
	require.NoError(t, err)
	require.NoError(t, st.Append(records...))

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(NewQueryServer(source, st), quietLogger())
	go srv.Serve(lis) //nolint:errcheck
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func zooSource() SchemaSource {
	return NewStaticSource(zooProvider(), schema.NewGenerator(schema.WithLogger(quietLogger())))
}

func TestQueryServiceExecute(t *testing.T) {
	client := NewQueryClient(startGRPC(t, zooSource()))

	got, err := client.Execute(context.Background(), schema.Request{
		Query:     `query($k: String) { animals(kind: $k) { name ... on Elephant { age } } }`,
		Variables: map[string]any{"k": "Elephant"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"data": map[string]any{
			"animals": []any{map[string]any{"name": "Elephant 0", "age": float64(0)}},
		},
	}, got)
}

func TestQueryServiceReturnsGraphQLErrors(t *testing.T) {
	client := NewQueryClient(startGRPC(t, zooSource()))

	got, err := client.Execute(context.Background(), schema.Request{Query: `{ nope }`})
	require.NoError(t, err)
	assert.NotEmpty(t, got["errors"])
}

func TestQueryServiceRejectsEmptyQuery(t *testing.T) {
	client := NewQueryClient(startGRPC(t, zooSource()))

	_, err := client.Execute(context.Background(), schema.Request{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestQueryServiceSchemaUnavailable(t *testing.T) {
	src := NewStaticSource(brokenProvider{}, schema.NewGenerator(schema.WithLogger(quietLogger())))
	client := NewQueryClient(startGRPC(t, src))

	_, err := client.Execute(context.Background(), schema.Request{Query: `{ animals { name } }`})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestHealthService(t *testing.T) {
	conn := startGRPC(t, zooSource())
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: QueryServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestReflectionDescribesQueryService(t *testing.T) {
	conn := startGRPC(t, zooSource())
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(context.Background())
	require.NoError(t, err)

	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}))
	resp, err := stream.Recv()
	require.NoError(t, err)
	var services []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		services = append(services, svc.GetName())
	}
	assert.Contains(t, services, QueryServiceName)

	require.NoError(t, stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_FileContainingSymbol{FileContainingSymbol: QueryServiceName},
	}))
	resp, err = stream.Recv()
	require.NoError(t, err)
	require.Nil(t, resp.GetErrorResponse(), "reflection error: %v", resp.GetErrorResponse())

	var found *descriptorpb.FileDescriptorProto
	for _, raw := range resp.GetFileDescriptorResponse().GetFileDescriptorProto() {
		fdp := &descriptorpb.FileDescriptorProto{}
		require.NoError(t, proto.Unmarshal(raw, fdp))
		if fdp.GetName() == queryProtoFile {
			found = fdp
		}
	}
	require.NotNil(t, found)
	require.Len(t, found.GetService(), 1)
	method := found.GetService()[0].GetMethod()[0]
	assert.Equal(t, "Execute", method.GetName())
	assert.Equal(t, ".google.protobuf.Struct", method.GetInputType())
	require.NoError(t, stream.CloseSend())
}

func TestRequestFromStructRejectsBadVariables(t *testing.T) {
	in, err := structpb.NewStruct(map[string]any{"query": "{ animals { name } }", "variables": "x"})
	require.NoError(t, err)
	_, err = requestFromStruct(in)
	assert.Error(t, err)
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(quietLogger())
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: executeMethod},
		func(context.Context, any) (any, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestLoggingInterceptorSetsRequestID(t *testing.T) {
	interceptor := LoggingInterceptor(quietLogger())
	var seen string
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: executeMethod},
		func(ctx context.Context, _ any) (any, error) {
			seen = RequestID(ctx)
			return stubHandler(ctx, nil)
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.NotEmpty(t, seen)
}
