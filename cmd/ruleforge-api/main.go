// Package main provides the RuleForge API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/ruleforge/pkg/automation"
	"github.com/dukex/ruleforge/pkg/cmd"
	"github.com/dukex/ruleforge/pkg/eventbus"
	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/log"
	"github.com/dukex/ruleforge/pkg/metrics"
	"github.com/dukex/ruleforge/pkg/otelhelper"
	"github.com/dukex/ruleforge/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPort = 9091
	serviceName = "ruleforge-api"
)

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Run automation rules against project events",
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
				Name:     "database-url",
				Usage:    "Persistence URL (file://dir or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "idempotency-store-url",
				Usage:   "Optional redis:// URL holding processed event markers",
				Sources: cli.EnvVars("IDEMPOTENCY_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-forwarder",
				Usage:   "Channel for exchanging events with other services (none, gochannel, kafka)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_FORWARDER"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "chat-service-url",
				Usage:   "Base URL of the chat service; empty keeps messages in process",
				Sources: cli.EnvVars("CHAT_SERVICE_URL"),
			},
			&cli.StringFlag{
				Name:    "memory-service-url",
				Usage:   "Base URL of the memory service; empty keeps memories in process",
				Sources: cli.EnvVars("MEMORY_SERVICE_URL"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
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
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing RuleForge API")

	var tracer trace.Tracer = otelhelper.NoopTracer()

	if command.Bool("otel-enabled") {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, serviceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"), command.String("idempotency-store-url"))
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	defer func() {
		err := persistence.Close(context.Background())
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	registry := cmd.NewRegistry(logger, command.String("chat-service-url"), command.String("memory-service-url"))
	bus := eventbus.NewBus()

	engine := automation.NewEngine(logger, persistence, registry, bus, tracer)
	engine.Start(ctx)

	defer engine.Stop(context.Background())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := metrics.New(promRegistry)
	unsubscribeMetrics := m.Subscribe(bus, automation.TriggerEventTypes()...)

	defer unsubscribeMetrics()

	sched := scheduler.New(logger, persistence.RuleRepository(), bus)

	err = sched.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	defer sched.Stop(context.Background())

	publisher, subscriber, err := cmd.NewChannel(
		command.String("event-forwarder"),
		command.StringSlice("kafka-brokers"),
		command.Bool("otel-enabled"),
		logger,
	)
	if err != nil {
		return err
	}

	if publisher != nil {
		forwarder := eventbus.NewWatermillForwarder(publisher, eventbus.Topic, logger)
		forwarder.Forward(bus, events.AutomationRuleExecuted)

		defer func() {
			err := forwarder.Close()
			if err != nil {
				logger.ErrorContext(ctx, "Failed to close event forwarder", "error", err)
			}
		}()
	}

	if subscriber != nil {
		source := eventbus.NewWatermillSource(subscriber, eventbus.SourceTopic, bus, logger)

		go func() {
			err := source.Run(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Domain event source stopped", "error", err)
			}
		}()

		defer func() {
			err := subscriber.Close()
			if err != nil {
				logger.ErrorContext(ctx, "Failed to close event source", "error", err)
			}
		}()
	}

	api := NewAPI(logger, persistence, engine, bus, m, promRegistry)

	return api.Start(ctx, command.Int("port"))
}
