// Command server is the entry point for the Connector API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connector/internal/config"
	"connector/internal/middleware"
	"connector/internal/observability"
	"connector/internal/server"
)

// @title Connector API
// @version 1.0
// @description Users, posts, likes and comments with token authentication

// @host localhost:5000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-auth-token

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	middleware.Logger = middleware.NewLogger(cfg.Env)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "connector-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   1.0,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	app := server.NewApp()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Stop accepting requests first, then release what handlers used, and
	// flush pending spans last so shutdown work is still traced.
	done := awaitShutdown(sigChan, 10*time.Second,
		shutdownStep{"server", app.ShutdownWithContext},
		shutdownStep{"resources", srv.Shutdown},
		shutdownStep{"tracing", shutdownTracing},
	)

	middleware.Logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}

	// Listen returns as soon as the listener closes; wait for the rest.
	<-done
	middleware.Logger.Info("Server stopped")
}

type shutdownStep struct {
	name string
	fn   func(context.Context) error
}

// awaitShutdown runs steps in order after the first signal on sig, sharing
// one timeout. The returned channel closes when every step has finished.
func awaitShutdown(sig <-chan os.Signal, timeout time.Duration, steps ...shutdownStep) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig

		middleware.Logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		for _, step := range steps {
			if err := step.fn(ctx); err != nil {
				middleware.Logger.Error("Shutdown step failed", "step", step.name, "error", err)
			}
		}
	}()
	return done
}
