package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lonkyzooner/thunderfire-sub002/internal/httpapi"
)

const (
	shutdownTimeout  = 10 * time.Second
	discoveryTimeout = 10 * time.Second
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket front-end",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http_addr)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.close(); err != nil {
			logger.Warn("runtime close error", zap.Error(err))
		}
	}()

	srv := httpapi.NewServer(logger, cfg.HTTPAddr, rt.engine, httpapi.Options{
		InputRate:  cfg.InputRatePerSecond,
		InputBurst: cfg.InputBurst,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	rt.classifier.Start(gctx)
	g.Go(func() error {
		if err := rt.classifier.Wait(gctx); err == nil {
			logger.Info("classifier warm-up finished", zap.Bool("primary", rt.classifier.Ready()))
		}
		return nil
	})

	if rt.remote != nil {
		g.Go(func() error {
			discoverCtx, cancel := context.WithTimeout(gctx, discoveryTimeout)
			defer cancel()
			n, err := rt.remote.Discover(discoverCtx, rt.registry)
			if err != nil {
				logger.Warn("tool discovery warning", zap.Error(err))
			}
			logger.Info("tools registered", zap.Int("remote", n), zap.Strings("ids", rt.registry.IDs()))
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server crashed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
