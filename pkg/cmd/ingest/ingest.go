package ingest

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/f1grid/livetiming-ingest-go/log"
	"github.com/f1grid/livetiming-ingest-go/pkg/config"
	"github.com/f1grid/livetiming-ingest-go/pkg/db/postgres"
	"github.com/f1grid/livetiming-ingest-go/pkg/livetiming"
	"github.com/f1grid/livetiming-ingest-go/pkg/model"
	"github.com/f1grid/livetiming-ingest-go/pkg/processing"
	"github.com/f1grid/livetiming-ingest-go/pkg/publish"
	natspub "github.com/f1grid/livetiming-ingest-go/pkg/publish/nats"
	"github.com/f1grid/livetiming-ingest-go/pkg/publish/ws"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository"
	"github.com/f1grid/livetiming-ingest-go/pkg/repository/api"
	"github.com/f1grid/livetiming-ingest-go/pkg/utils"
)

func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "starts the live timing ingestion pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest()
		},
	}
	cmd.Flags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	cmd.Flags().StringVar(&config.LogFormat,
		"log-format",
		"json",
		"controls the log output format (json, text)")
	cmd.Flags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"zapfilter rules for the text logger")
	cmd.Flags().StringVar(&config.PublishAddr,
		"publish-addr",
		"localhost:8000",
		"listen address for the downstream websocket publisher")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"if set, records are relayed to this NATS server")
	cmd.Flags().IntVar(&config.MaxReconnect,
		"max-reconnect",
		0,
		"maximum reconnect attempts before giving up (0 = unlimited)")
	return cmd
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

func setupLogger() *log.Logger {
	switch config.LogFormat {
	case "json":
		return log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		return log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			config.LogFilter,
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
}

//nolint:funlen // wiring reads best in one piece
func runIngest() error {
	logger := setupLogger()
	log.ResetDefault(logger)

	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	if err := utils.WaitForTCP(utils.ExtractFromDBURL(config.DB), timeout); err != nil {
		return err
	}

	poolOpts := []postgres.PoolConfigOption{}
	if parseLogLevel(config.SQLLogLevel, log.InfoLevel) == log.DebugLevel {
		poolOpts = append(poolOpts, postgres.WithTracer(logger.Named("sql")))
	}
	pool, err := postgres.InitWithURL(config.DB, poolOpts...)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	wsSrv := ws.NewServer(config.PublishAddr)
	go func() {
		if err := wsSrv.Start(ctx); err != nil {
			log.Error("downstream publisher terminated", log.ErrorField(err))
		}
	}()
	targets := []publish.Publisher{wsSrv}
	if config.NatsURL != "" {
		natsPub, natsErr := natspub.NewPublisher(config.NatsURL)
		if natsErr != nil {
			return natsErr
		}
		targets = append(targets, natsPub)
	}
	pub := publish.NewMulti(targets...)
	defer pub.Close()

	dispatcher := buildPipeline(repository.NewRepositories(pool), pub)

	log.Info("Starting ingestion",
		log.String("negotiateUrl", config.NegotiateURL),
		log.String("connectionUrl", config.ConnectionURL))
	err = supervise(ctx, dispatcher)
	log.Info("Ingestion terminated")
	return err
}

func buildPipeline(repos api.Repositories, pub publish.Publisher) *processing.Dispatcher {
	active := &processing.ActiveSession{}
	resolver := processing.NewSessionResolver(repos, model.NewID, active, pub)
	roster := processing.NewDriverRoster(repos, model.NewID, pub)
	laps := processing.NewLapReconstructor(repos, model.NewID, active, pub)

	dispatcher := processing.NewDispatcher(processing.WithRawlog(repos.Rawlog()))
	dispatcher.Register(livetiming.TopicSessionInfo, resolver.Handle)
	dispatcher.Register(livetiming.TopicDriverList, roster.Handle)
	dispatcher.Register(livetiming.TopicTimingData, laps.Handle)
	return dispatcher
}

// a connection alive this long resets the reconnect backoff
const healthyConnection = time.Minute

// supervise restarts the whole pipeline (fresh negotiate, fresh
// connect) whenever the feed connection fails. A failed first
// handshake and an unknown session type are fatal.
//
//nolint:gocognit // supervision loop reads best in one piece
func supervise(ctx context.Context, dispatcher *processing.Dispatcher) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry until canceled
	attempts := 0
	for {
		started := time.Now()
		err := runPipeline(ctx, dispatcher)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, processing.ErrUnknownSessionType) {
			return err
		}
		var negErr *livetiming.NegotiationError
		if errors.As(err, &negErr) && attempts == 0 {
			// without a first handshake there is no stream to supervise
			return err
		}

		attempts++
		if config.MaxReconnect > 0 && attempts >= config.MaxReconnect {
			return err
		}
		if time.Since(started) > healthyConnection {
			policy.Reset()
		}
		wait := policy.NextBackOff()
		log.Warn("feed connection lost, reconnecting",
			log.ErrorField(err),
			log.Duration("wait", wait),
			log.Int("attempt", attempts))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil
		}
	}
}

func runPipeline(ctx context.Context, dispatcher *processing.Dispatcher) error {
	negotiator := livetiming.NewNegotiator(config.NegotiateURL)
	res, err := negotiator.Negotiate(ctx)
	if err != nil {
		return err
	}

	client := livetiming.NewClient(config.ConnectionURL)
	go client.Run(ctx, res)

	if err := dispatcher.Run(ctx, client.Frames()); err != nil {
		client.Close()
		return err
	}
	// the frame channel closed, surface the socket's terminal error
	select {
	case err := <-client.Done():
		return err
	default:
		return nil
	}
}
