// Command vivid-server serves the identity and document services over gRPC.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/forever-vivid/internal/broker"
	"github.com/and161185/forever-vivid/internal/config"
	pkgcrypto "github.com/and161185/forever-vivid/internal/crypto"
	"github.com/and161185/forever-vivid/internal/limiter"
	"github.com/and161185/forever-vivid/internal/logging"
	"github.com/and161185/forever-vivid/internal/migrate"
	"github.com/and161185/forever-vivid/internal/repository"
	"github.com/and161185/forever-vivid/internal/repository/memory"
	"github.com/and161185/forever-vivid/internal/repository/postgres"
	grpcserver "github.com/and161185/forever-vivid/internal/server/grpc"
	"github.com/and161185/forever-vivid/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// backend is the storage the services run on.
type backend struct {
	users repository.UserRepository
	docs  repository.DocumentRepository
	lim   limiter.Limiter
	close func()
}

func main() {
	cfg, err := config.LoadServer(os.Args[1:])
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	logger, err := logging.NewServer(cfg.Dev)
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	keys, err := pkgcrypto.DeriveSigningKeys([]byte(cfg.Secret))
	if err != nil {
		logger.Fatal("derive signing keys", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policies := limiter.Policies{
		limiter.BucketAnonymous:   {Window: cfg.AnonWindow, Max: cfg.AnonMax, BlockFor: cfg.BlockFor},
		limiter.BucketCustomToken: {Window: cfg.BlockFor, Max: cfg.TokenMaxFail, BlockFor: cfg.BlockFor},
	}
	be, err := openBackend(ctx, cfg, policies, logger)
	if err != nil {
		logger.Fatal("open backend", zap.Error(err))
	}
	defer be.close()

	identitySvc := service.NewIdentityService(be.users, keys, cfg.AccessTTL, be.lim)
	docSvc := service.NewDocumentService(be.docs, broker.New(), cfg.MaxFields)

	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.AuthUnary(keys.Access),
			grpcserver.LoggingUnary(logger),
		),
		grpc.ChainStreamInterceptor(
			grpcserver.RecoverStream(logger),
			grpcserver.AuthStream(keys.Access),
			grpcserver.LoggingStream(logger),
		),
	}
	if cfg.Plaintext() {
		logger.Warn("TLS disabled: no certificate configured")
	} else {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}
	s := grpc.NewServer(opts...)

	grpcserver.New(identitySvc, docSvc, keys.Access, logger).Register(s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Bool("tls", !cfg.Plaintext()))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// openBackend picks the in-memory repositories for memory:// and Postgres otherwise.
func openBackend(ctx context.Context, cfg *config.Server, policies limiter.Policies, logger *zap.Logger) (*backend, error) {
	if cfg.DatabaseDSN == config.MemoryDSN {
		logger.Warn("using in-memory storage; data is lost on exit")
		return &backend{
			users: memory.NewUserRepo(),
			docs:  memory.NewDocumentRepo(),
			lim:   limiter.NewMemory(policies),
			close: func() {},
		}, nil
	}

	ver, err := migrate.Up(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	logger.Info("migrations applied", zap.Int64("version", ver))

	db, err := postgres.New(ctx, cfg.DatabaseDSN, int32(cfg.MaxConns))
	if err != nil {
		return nil, err
	}
	return &backend{
		users: postgres.NewUserRepo(db),
		docs:  postgres.NewDocumentRepo(db),
		lim:   limiter.NewPG(db.Pool, policies),
		close: db.Close,
	}, nil
}
