package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the booking wizard, the resume optimizer and the optimization job endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides LISTEN_ADDR and PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Addr = fmt.Sprintf(":%d", servePort)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	jobClient, err := a.jobClient(ctx)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimit:       ratelimit.NewConfig(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
		Session:         cfg.Session,
		Admin:           cfg.Admin,
		Poll:            a.pollConfig(),
		JobsKey:         cfg.Jobs.APIKey,
	}, server.Deps{
		Backend:   a.backend,
		Checkout:  a.checkoutProvider(),
		Scheduler: a.scheduler(),
		Relay:     a.relay(),
		Records:   a.records(),
		Jobs:      jobClient,
		Fetcher:   a.fetcher(),
		Metrics:   a.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}

// commandContext is the command's context, or Background when run outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
