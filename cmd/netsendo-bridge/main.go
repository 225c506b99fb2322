// Command netsendo-bridge hosts the NetSendo action and trigger nodes over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/netsendo-nodes/pkg/cache"
	"github.com/Sternrassler/netsendo-nodes/pkg/client"
	"github.com/Sternrassler/netsendo-nodes/pkg/events"
	"github.com/Sternrassler/netsendo-nodes/pkg/logging"
	"github.com/Sternrassler/netsendo-nodes/pkg/node"
	"github.com/Sternrassler/netsendo-nodes/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := loadConfig()
	logger := logging.Setup(logging.Config{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Output:  os.Stderr,
		Service: "netsendo-bridge",
	}).With().Str("component", logging.ComponentBridge).Logger()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Bridge failed")
	}
}

func run(ctx context.Context, cfg config, logger zerolog.Logger) error {
	redisOpts, err := cfg.redisOptions()
	if err != nil {
		return err
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}
	logger.Info().Str("redis", redisOpts.Addr).Msg("Connected to Redis")

	clientCfg := client.DefaultConfig(cfg.Credentials)
	clientCfg.Redis = redisClient
	clientCfg.UserAgent = cfg.UserAgent
	clientCfg.RateLimit = cfg.RateLimit
	clientCfg.Retry.MaxAttempts = cfg.MaxRetries

	api, err := client.New(clientCfg)
	if err != nil {
		return err
	}
	defer api.Close()

	var sink events.Sink = events.NopSink{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return err
		}
		sink = kafkaSink
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("Forwarding webhook deliveries to Kafka")
	}
	defer sink.Close()

	optionsCache := cache.NewManager(redisClient, cfg.OptionsCacheTTL)
	srv := &server{
		node:           node.New(api, node.WithOptionsCache(optionsCache, cfg.Credentials.Fingerprint())),
		api:            api,
		store:          state.NewRedisStore(redisClient),
		sink:           sink,
		redis:          redisClient,
		continueOnFail: cfg.ContinueOnFail,
		logger:         logger,
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("api_root", api.APIRoot()).
			Str("user_agent", cfg.UserAgent).
			Msg("Starting NetSendo bridge")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info().Msg("Shutting down NetSendo bridge")
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
