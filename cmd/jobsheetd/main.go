package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/export"
	repo "github.com/joseph-ayodele/repair-jobsheets/internal/repository"
	svc "github.com/joseph-ayodele/repair-jobsheets/internal/server"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/auth"
	"github.com/joseph-ayodele/repair-jobsheets/internal/services/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// run starts both servers and blocks until ctx is done or a server fails.
// Failures are logged before they are returned.
func run(ctx context.Context, out io.Writer) error {
	cfg, err := common.LoadConfig()
	logger := common.NewLogger(common.LoggingConfig{Level: "info"}, out)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logger = common.NewLogger(cfg.Logging, out)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return err
	}

	store, err := repo.Open(ctx, cfg.Sheets, logger)
	if err != nil {
		logger.Error("failed to open spreadsheet", "backend", cfg.Sheets.Backend, "error", err)
		return err
	}
	defer repo.Close(store, logger)

	if err := repo.HealthCheck(ctx, store, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping spreadsheet", "error", err)
		return err
	}

	jobsRepo := repo.NewJobRepository(store, logger)
	adminRepo := repo.NewAdminRepository(store, logger)
	if err := jobsRepo.VerifySchema(ctx); err != nil {
		logger.Error("job tab header mismatch", "tab", cfg.Sheets.JobsTab, "error", err)
		return err
	}

	jobsService := jobs.NewService(jobsRepo, logger)
	authService := auth.NewService(adminRepo, auth.Config{
		Secret:           []byte(cfg.Auth.JWTSecret),
		TokenTTL:         cfg.Auth.TokenTTL,
		ResetTTL:         cfg.Auth.ResetTokenTTL,
		HashPasswords:    cfg.Auth.HashPasswords,
		ExposeResetToken: !cfg.IsProduction(),
	}, logger)
	exportService := export.NewService(jobsRepo, logger)

	api := svc.NewAPI(svc.Deps{
		Jobs:           jobsService,
		Auth:           authService,
		Export:         exportService,
		Store:          store,
		Production:     cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins(),
	}, logger)
	httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.HTTPAddr, "error", err)
		return err
	}
	httpServer := &http.Server{
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC lookup server
	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(svc.UnaryLogger(logger)))
	svc.RegisterJobLookupServer(grpcServer, svc.NewLookupService(jobsService, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	// reflection for grpcurl
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("repair-jobsheets http listening", "addr", httpLis.Addr().String(), "env", cfg.Env)
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("repair-jobsheets grpc listening", "addr", grpcLis.Addr().String())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	logger.Info("stopped")
	return nil
}
