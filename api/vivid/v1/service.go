// Package vividv1 declares the vivid.v1 gRPC services.
//
// Messages are protobuf well-known types (google.protobuf.Struct and Empty); their
// shapes are owned by internal/convert. The descriptors below are what protoc-gen-go-grpc
// would emit for:
//
//	service Identity {
//	  rpc SignInAnonymously(google.protobuf.Empty) returns (google.protobuf.Struct);
//	  rpc SignInWithCustomToken(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
//	service Documents {
//	  rpc Append(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Listen(google.protobuf.Struct) returns (stream google.protobuf.Struct);
//	}
package vividv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Full method names.
const (
	IdentitySignInAnonymouslyMethod     = "/vivid.v1.Identity/SignInAnonymously"
	IdentitySignInWithCustomTokenMethod = "/vivid.v1.Identity/SignInWithCustomToken"
	DocumentsAppendMethod               = "/vivid.v1.Documents/Append"
	DocumentsListenMethod               = "/vivid.v1.Documents/Listen"
)

const protoFile = "vivid/v1/vivid.proto"

// ---------- Identity ----------

// IdentityServer is the server API for vivid.v1.Identity.
type IdentityServer interface {
	SignInAnonymously(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SignInWithCustomToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedIdentityServer answers every Identity call with codes.Unimplemented.
type UnimplementedIdentityServer struct{}

func (UnimplementedIdentityServer) SignInAnonymously(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignInAnonymously not implemented")
}

func (UnimplementedIdentityServer) SignInWithCustomToken(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SignInWithCustomToken not implemented")
}

// RegisterIdentityServer attaches srv to s.
func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&IdentityServiceDesc, srv)
}

func identitySignInAnonymouslyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).SignInAnonymously(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IdentitySignInAnonymouslyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServer).SignInAnonymously(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func identitySignInWithCustomTokenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IdentityServer).SignInWithCustomToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IdentitySignInWithCustomTokenMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(IdentityServer).SignInWithCustomToken(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// IdentityServiceDesc is the grpc.ServiceDesc for vivid.v1.Identity.
var IdentityServiceDesc = grpc.ServiceDesc{
	ServiceName: "vivid.v1.Identity",
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SignInAnonymously", Handler: identitySignInAnonymouslyHandler},
		{MethodName: "SignInWithCustomToken", Handler: identitySignInWithCustomTokenHandler},
	},
	Metadata: protoFile,
}

// IdentityClient is the client API for vivid.v1.Identity.
type IdentityClient interface {
	SignInAnonymously(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SignInWithCustomToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type identityClient struct {
	cc grpc.ClientConnInterface
}

// NewIdentityClient wraps cc.
func NewIdentityClient(cc grpc.ClientConnInterface) IdentityClient {
	return &identityClient{cc: cc}
}

func (c *identityClient) SignInAnonymously(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, IdentitySignInAnonymouslyMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *identityClient) SignInWithCustomToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, IdentitySignInWithCustomTokenMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- Documents ----------

// DocumentsListenServer is the server side of a Listen stream.
type DocumentsListenServer = grpc.ServerStreamingServer[structpb.Struct]

// DocumentsListenClient is the client side of a Listen stream.
type DocumentsListenClient = grpc.ServerStreamingClient[structpb.Struct]

// DocumentsServer is the server API for vivid.v1.Documents.
type DocumentsServer interface {
	Append(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Listen(*structpb.Struct, DocumentsListenServer) error
}

// UnimplementedDocumentsServer answers every Documents call with codes.Unimplemented.
type UnimplementedDocumentsServer struct{}

func (UnimplementedDocumentsServer) Append(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Append not implemented")
}

func (UnimplementedDocumentsServer) Listen(*structpb.Struct, DocumentsListenServer) error {
	return status.Error(codes.Unimplemented, "method Listen not implemented")
}

// RegisterDocumentsServer attaches srv to s.
func RegisterDocumentsServer(s grpc.ServiceRegistrar, srv DocumentsServer) {
	s.RegisterService(&DocumentsServiceDesc, srv)
}

func documentsAppendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentsServer).Append(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DocumentsAppendMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentsServer).Append(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func documentsListenHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DocumentsServer).Listen(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// DocumentsServiceDesc is the grpc.ServiceDesc for vivid.v1.Documents.
var DocumentsServiceDesc = grpc.ServiceDesc{
	ServiceName: "vivid.v1.Documents",
	HandlerType: (*DocumentsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Append", Handler: documentsAppendHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Listen", Handler: documentsListenHandler, ServerStreams: true},
	},
	Metadata: protoFile,
}

// DocumentsClient is the client API for vivid.v1.Documents.
type DocumentsClient interface {
	Append(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Listen(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (DocumentsListenClient, error)
}

type documentsClient struct {
	cc grpc.ClientConnInterface
}

// NewDocumentsClient wraps cc.
func NewDocumentsClient(cc grpc.ClientConnInterface) DocumentsClient {
	return &documentsClient{cc: cc}
}

func (c *documentsClient) Append(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, DocumentsAppendMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *documentsClient) Listen(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (DocumentsListenClient, error) {
	stream, err := c.cc.NewStream(ctx, &DocumentsServiceDesc.Streams[0], DocumentsListenMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
