package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Relay/internal/adapters/http"
	"github.com/dkeye/Relay/internal/adapters/tcp"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/dispatch"
	"github.com/dkeye/Relay/internal/app/media"
	"github.com/dkeye/Relay/internal/app/reactor"
	"github.com/dkeye/Relay/internal/app/stats"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/storage/sqlite"
	"github.com/dkeye/Relay/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("relay failed")
	}
	log.Info().Msg("Server exited gracefully")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	oversize, err := reactor.ParseOversizePolicy(cfg.OversizePolicy)
	if err != nil {
		return err
	}
	policy, err := app.PolicyByName(cfg.SlowConsumer)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	jobs := worker.NewQueue(cfg.JobQueue)
	reg := app.NewRegistry()
	counters := &stats.Counters{}
	d := &dispatch.Dispatcher{
		Registry: reg,
		Fanout: &app.Fanout{
			Registry:  reg,
			Counters:  counters,
			Policy:    policy,
			WarnAfter: cfg.FanoutWarn,
		},
		Cache:          media.NewCache(cfg.CacheSize),
		Sequencer:      &media.Sequencer{},
		Counters:       counters,
		Recorder:       store,
		Auth:           store,
		WorkOrders:     store,
		Jobs:           jobs,
		Limiter:        dispatch.NewLoginRateLimiter(cfg.LoginAttempts, cfg.LoginWindow),
		MediaDelayWarn: cfg.MediaDelayWarn,
	}
	relay := reactor.New(reactor.Config{
		MaxBuffer:   cfg.MaxBuffer,
		Oversize:    oversize,
		StatsPeriod: cfg.StatsPeriod,
		IdleTimeout: cfg.IdleTimeout,
	}, d)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRouter(cfg, relay),
		ReadHeaderTimeout: 10 * time.Second,
	}
	tcpSrv := &tcp.Server{Hub: relay, SendQueue: cfg.SendQueue}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return jobs.Run(gctx) })
	g.Go(func() error { return tcpSrv.ListenAndServe(gctx, cfg.TCPAddr) })
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Relay server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})
	return g.Wait()
}
