// Package server exposes transcript parsing and processing over gRPC.
//
// Messages are google.protobuf.Struct values so the surface needs no
// generated code; field names match the JSON forms of the domain types.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "transcriptreader.v1.TranscriptService"

// TranscriptServiceServer is the server API for the transcript service.
type TranscriptServiceServer interface {
	ParseFragments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessFile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ProcessDirectory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTranscript(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTranscripts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExportTranscripts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(TranscriptServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(TranscriptServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(TranscriptServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// TranscriptServiceDesc describes the service for grpc.Server.RegisterService.
var TranscriptServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranscriptServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ParseFragments", TranscriptServiceServer.ParseFragments),
		unary("ProcessFile", TranscriptServiceServer.ProcessFile),
		unary("ProcessDirectory", TranscriptServiceServer.ProcessDirectory),
		unary("GetTranscript", TranscriptServiceServer.GetTranscript),
		unary("ListTranscripts", TranscriptServiceServer.ListTranscripts),
		unary("ExportTranscripts", TranscriptServiceServer.ExportTranscripts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "transcriptreader/v1/transcript.proto",
}

func RegisterTranscriptServiceServer(s grpc.ServiceRegistrar, srv TranscriptServiceServer) {
	s.RegisterService(&TranscriptServiceDesc, srv)
}

// Client calls a remote TranscriptService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with in and returns the response struct.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NewGRPCServer builds a grpc.Server with the transcript service and the
// standard health service registered. Health starts as SERVING.
func NewGRPCServer(svc TranscriptServiceServer, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(requestLogger(logger)))
	s := grpc.NewServer(opts...)
	RegisterTranscriptServiceServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

// requestLogger tags each call with a request id and logs its outcome.
func requestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		rid := uuid.NewString()
		log := logger.With("request_id", rid, "method", info.FullMethod)
		ctx = common.WithRequestID(ctx, rid)
		ctx = common.WithLogger(ctx, log)

		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("grpc.call.failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
			return nil, common.ToStatus(err)
		}
		log.Debug("grpc.call.ok", "elapsed_ms", time.Since(start).Milliseconds())
		return resp, nil
	}
}
