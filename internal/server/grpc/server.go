// Package grpcserver exposes the vivid.v1 gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	vividv1 "github.com/and161185/forever-vivid/api/vivid/v1"
	"github.com/and161185/forever-vivid/internal/convert"
	"github.com/and161185/forever-vivid/internal/errs"
	"github.com/and161185/forever-vivid/internal/model"
	"github.com/and161185/forever-vivid/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	vividv1.UnimplementedIdentityServer
	vividv1.UnimplementedDocumentsServer
	identity  service.IdentityService
	docs      service.DocumentService
	accessKey []byte
	log       *zap.Logger
}

// New constructs a gRPC server with injected services.
func New(identity service.IdentityService, docs service.DocumentService, accessKey []byte, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{identity: identity, docs: docs, accessKey: accessKey, log: log}
}

// Register attaches both services to gs.
func (s *Server) Register(gs grpc.ServiceRegistrar) {
	vividv1.RegisterIdentityServer(gs, s)
	vividv1.RegisterDocumentsServer(gs, s)
}

func remoteIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, errs.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, errs.ErrInvalidArgument):
		return status.Errorf(codes.InvalidArgument, "%s: %v", op, err)
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

// --- Identity ---

// SignInAnonymously creates an anonymous user and returns its credential.
func (s *Server) SignInAnonymously(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cred, err := s.identity.SignInAnonymously(ctx, remoteIP(ctx))
	if err != nil {
		return nil, toStatus("sign in anonymously", err)
	}
	return convert.ToProtoCredential(cred), nil
}

// SignInWithCustomToken exchanges a custom token for a credential.
func (s *Server) SignInWithCustomToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tok, err := convert.FromProtoCustomTokenRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	cred, err := s.identity.SignInWithCustomToken(ctx, tok, remoteIP(ctx))
	if err != nil {
		return nil, toStatus("sign in with custom token", err)
	}
	return convert.ToProtoCredential(cred), nil
}

// --- Documents ---

// Append adds a document to a collection owned by the caller.
func (s *Server) Append(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	caller, err := s.identityFromCtx(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	path, fields, err := convert.FromProtoAppendRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	doc, err := s.docs.Append(ctx, caller, path, fields)
	if err != nil {
		return nil, toStatus("append", err)
	}
	return convert.ToProtoAppendResponse(doc.ID), nil
}

// Listen streams a full snapshot of the collection now and after every change.
func (s *Server) Listen(req *structpb.Struct, stream vividv1.DocumentsListenServer) error {
	ctx := stream.Context()
	caller, err := s.identityFromCtx(ctx)
	if err != nil {
		return status.Error(codes.Unauthenticated, "no auth")
	}
	path, err := convert.FromProtoListenRequest(req)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}

	// Subscribe before the first List so no change falls between them.
	changes, cancel, err := s.docs.Watch(ctx, caller, path)
	if err != nil {
		return toStatus("listen", err)
	}
	defer cancel()

	for {
		if err := s.sendSnapshot(ctx, stream, caller, path); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
		}
	}
}

func (s *Server) sendSnapshot(ctx context.Context, stream vividv1.DocumentsListenServer, caller model.Identity, path string) error {
	docs, err := s.docs.List(ctx, caller, path)
	if err != nil {
		return toStatus("list", err)
	}
	msg, err := convert.ToProtoSnapshot(docs)
	if err != nil {
		s.log.Error("encode snapshot", zap.String("path", path), zap.Error(err))
		return status.Error(codes.Internal, "encode snapshot")
	}
	return stream.Send(msg)
}

// identityFromCtx returns the caller identity from context or from the bearer access token.
func (s *Server) identityFromCtx(ctx context.Context) (model.Identity, error) {
	if id, ok := IdentityFromCtx(ctx); ok {
		return id, nil
	}
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	return service.VerifyAccessToken(s.accessKey, tok, nil)
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
