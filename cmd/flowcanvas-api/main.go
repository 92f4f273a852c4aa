package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/flowcanvas/pkg/cmd"
	"github.com/dukex/flowcanvas/pkg/generator"
	"github.com/dukex/flowcanvas/pkg/log"
	"github.com/dukex/flowcanvas/pkg/runner"
	"github.com/dukex/flowcanvas/pkg/scheduler"
	"github.com/dukex/flowcanvas/pkg/web"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort     = 8000
	shutdownTimeout = 10 * time.Second
)

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "flowcanvas-api",
		Usage:                 "Store, run and stream workflows for the editor",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (file://path or postgres://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-bus",
				Usage:   "Execution log transport (gochannel, kafka, redis)",
				Value:   "gochannel",
				Sources: cli.EnvVars("LOG_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL used by the redis log bus",
				Value:   "redis://localhost:6379/0",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers used by the kafka log bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "API key for prompt generation",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:  "tools-path",
				Usage: "JSON file with extra tools to register",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Flowcanvas API")

			shutdownTracing := cmd.SetupTracing(ctx, logger, command.Bool("tracing"), "flowcanvas-api")
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			registry := cmd.NewRegistry(ctx, logger, command.String("tools-path"))
			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			logs := cmd.NewLogStore(cmd.LogBusConfig{
				Provider:     command.String("log-bus"),
				RedisURL:     command.String("redis-url"),
				KafkaBrokers: command.String("kafka-brokers"),
			}, logger)

			defer func() {
				if err := logs.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close log bus", "error", err)
				}
			}()

			var gen web.Generator
			if key := command.String("openai-api-key"); key != "" {
				gen = generator.NewOpenAI(logger, key)
			}

			workflowRunner := runner.New(logger, logs, gen)
			sched := scheduler.New(logger, web.ScheduledRun(logger, persistence, workflowRunner))

			api := NewAPI(logger, persistence, registry, workflowRunner, sched, logs, gen)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := sched.Stop(shutdownCtx); err != nil {
					logger.ErrorContext(shutdownCtx, "Failed to stop scheduler", "error", err)
				}

				if err := api.Shutdown(shutdownCtx); err != nil {
					logger.ErrorContext(shutdownCtx, "Failed to shutdown API", "error", err)
				}
			}()

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API", "error", err)
			}

			workflowRunner.Wait()

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
