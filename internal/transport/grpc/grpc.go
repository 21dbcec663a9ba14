// Package grpc implements the gRPC transport for saturday.
//
// The service saturday.v1.Interpreter is described by hand below and carried
// with a JSON codec, so clients call it with grpc.CallContentSubtype("json")
// and no protoc step is needed. The standard grpc.health.v1 service is
// registered on the same server.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/saturday/internal/config"
	"github.com/nadzzz/saturday/internal/dispatch"
	"github.com/nadzzz/saturday/internal/message"
	"github.com/nadzzz/saturday/internal/transport"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "saturday.v1.Interpreter"

// requestIDKey is the metadata key carrying the per-call id.
const requestIDKey = "x-request-id"

// CommandReply carries the raw action descriptor text.
type CommandReply struct {
	Descriptor string `json:"descriptor"`
}

// TranscribeRequest carries an audio payload.
type TranscribeRequest struct {
	Audio       []byte `json:"audio"`
	ContentType string `json:"content_type,omitempty"`
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	health *grpchealth.Server

	mu     sync.Mutex
	server *grpc.Server
}

// New creates a new gRPC transport from config.
func New(cfg config.GRPCConfig) *Transport {
	h := grpchealth.NewServer()
	h.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Transport{port: cfg.Port, health: h}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// SetServing mirrors daemon readiness into the gRPC health service.
func (t *Transport) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	t.health.SetServingStatus("", st)
	t.health.SetServingStatus(ServiceName, st)
}

// Server builds a gRPC server exposing svc and the health service.
func (t *Transport) Server(svc transport.Service) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(requestLogger))
	s.RegisterService(&serviceDesc, &interpreterServer{svc: svc})
	healthpb.RegisterHealthServer(s, t.health)
	return s
}

// Listen starts the gRPC server and serves requests with svc.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	srv := t.Server(svc)
	t.mu.Lock()
	t.server = srv
	t.mu.Unlock()

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.health.Shutdown()
		srv.GracefulStop()
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc serve: %w", err)
	}
	return nil
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	t.health.Shutdown()

	t.mu.Lock()
	srv := t.server
	t.mu.Unlock()

	if srv != nil {
		srv.GracefulStop()
	}
	return nil
}

// --- service implementation ---

type interpreterServer struct {
	svc transport.Service
}

func (s *interpreterServer) Command(ctx context.Context, req *message.CommandRequest) (*CommandReply, error) {
	out, err := s.svc.Command(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CommandReply{Descriptor: out}, nil
}

func (s *interpreterServer) Transcribe(ctx context.Context, req *TranscribeRequest) (*message.Transcript, error) {
	tr, err := s.svc.Transcribe(ctx, req.Audio, req.ContentType)
	if err != nil {
		return nil, toStatus(err)
	}
	return tr, nil
}

// toStatus maps a pipeline error onto a gRPC status. The message is the same
// text the HTTP transport writes.
func toStatus(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	var de *dispatch.Error
	if !errors.As(err, &de) {
		return status.Error(codes.Internal, err.Error())
	}
	switch de.Kind {
	case dispatch.KindBadRequest:
		return status.Error(codes.InvalidArgument, err.Error())
	case dispatch.KindInvalidOutput:
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// requestLogger is the gRPC counterpart of the HTTP request logger.
func requestLogger(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDKey); len(v) > 0 {
			id = v[0]
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDKey, id))

	logger := slog.With("request_id", id, "method", info.FullMethod)
	resp, err := handler(dispatch.WithLogger(ctx, logger), req)
	logger.Info("request complete", "code", status.Code(err).String())
	return resp, err
}

// --- hand-written service descriptor ---

// InterpreterServer is the server API for saturday.v1.Interpreter.
type InterpreterServer interface {
	Command(context.Context, *message.CommandRequest) (*CommandReply, error)
	Transcribe(context.Context, *TranscribeRequest) (*message.Transcript, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InterpreterServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Command", Handler: commandHandler},
		{MethodName: "Transcribe", Handler: transcribeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "saturday/v1/interpreter",
}

func commandHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.CommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InterpreterServer).Command(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Command"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InterpreterServer).Command(ctx, req.(*message.CommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func transcribeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TranscribeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InterpreterServer).Transcribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Transcribe"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InterpreterServer).Transcribe(ctx, req.(*TranscribeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// --- client ---

// Client calls saturday.v1.Interpreter over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Command interprets a command remotely.
func (c *Client) Command(ctx context.Context, req *message.CommandRequest, opts ...grpc.CallOption) (*CommandReply, error) {
	out := new(CommandReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Command", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Transcribe relays audio remotely.
func (c *Client) Transcribe(ctx context.Context, req *TranscribeRequest, opts ...grpc.CallOption) (*message.Transcript, error) {
	out := new(message.Transcript)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Transcribe", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
