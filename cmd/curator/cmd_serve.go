package main

import (
	"alcyxob/exercise-curator/internal/api"
	"alcyxob/exercise-curator/internal/config"
	"alcyxob/exercise-curator/internal/service"
	"alcyxob/exercise-curator/internal/storage"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP view of the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Address
			}
			svc, err := a.curator()
			if err != nil {
				return err
			}
			router, err := a.newRouter(cmdContext(cmd), svc)
			if err != nil {
				return err
			}
			return serveHTTP(cmdContext(cmd), a.logger, &http.Server{
				Addr:         addr,
				Handler:      router,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  120 * time.Second,
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.address)")
	return cmd
}

func (a *app) newRouter(ctx context.Context, svc service.CuratorService) (*gin.Engine, error) {
	// Presigned media URLs are only available from the S3 source.
	var signer storage.URLSigner
	if a.cfg.Media.Source == config.MediaSourceS3 {
		source, err := storage.NewS3Source(ctx, a.cfg.S3, a.cfg.Media.Prefix, a.cfg.Media.Pattern, a.logger)
		if err != nil {
			return nil, err
		}
		signer, _ = source.(storage.URLSigner)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if a.cfg.JWT.Secret == "" {
		a.logger.Warn("jwt.secret is empty; API is unauthenticated")
	}
	api.SetupRoutes(router, a.cfg.JWT.Secret, api.NewExerciseHandler(svc, signer, a.logger))
	return router, nil
}

// serveHTTP runs server until ctx is cancelled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, logger *zap.Logger, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// The server has 5 seconds to finish the requests it is currently handling.
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
