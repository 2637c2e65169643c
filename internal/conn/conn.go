// Package conn dials the store and maps gRPC statuses back to domain errors.
package conn

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/and161185/forever-vivid/internal/config"
	"github.com/and161185/forever-vivid/internal/errs"
)

// TokenSource returns the current bearer token, or "" when signed out.
type TokenSource func() string

type bearerCreds struct {
	token  TokenSource
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	if b.token == nil {
		return nil, nil
	}
	tok := b.token()
	if tok == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + tok}, nil
}

func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

// TransportCredentials builds TLS (or plaintext) credentials from the store configuration.
func TransportCredentials(sc *config.StoreConfig) (credentials.TransportCredentials, error) {
	if sc.Plaintext {
		return insecure.NewCredentials(), nil
	}
	cfg := &tls.Config{ServerName: sc.ServerName, MinVersion: tls.VersionTLS12}
	if sc.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true //nolint:gosec // dev only, opted in via store config
		return credentials.NewTLS(cfg), nil
	}
	if sc.CACert != "" {
		pem, err := os.ReadFile(sc.CACert)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("bad CA cert")
		}
		cfg.RootCAs = pool
	}
	return credentials.NewTLS(cfg), nil
}

// Dial creates a client connection for sc. tokens may be nil. The connection is lazy;
// nothing is sent until the first RPC.
func Dial(sc *config.StoreConfig, tokens TokenSource, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	creds, err := TransportCredentials(sc)
	if err != nil {
		return nil, err
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(bearerCreds{token: tokens, secure: !sc.Plaintext}),
	}
	opts = append(opts, extra...)
	return grpc.NewClient(sc.Address, opts...)
}

// FromStatus maps a gRPC status error to the matching errs sentinel, keeping the message.
// Errors without a sentinel are returned unchanged.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.Unauthenticated:
		sentinel = errs.ErrUnauthorized
	case codes.PermissionDenied:
		sentinel = errs.ErrPermissionDenied
	case codes.InvalidArgument:
		sentinel = errs.ErrInvalidArgument
	case codes.NotFound:
		sentinel = errs.ErrNotFound
	case codes.ResourceExhausted:
		sentinel = errs.ErrRateLimited
	case codes.AlreadyExists:
		sentinel = errs.ErrAlreadyExists
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	default:
		return err
	}
	return fmt.Errorf("%w: %s", sentinel, st.Message())
}
