package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mwantia/fabric/pkg/container"
	"github.com/mwantia/modbot/internal/api"
	config "github.com/mwantia/modbot/internal/config/server"
	"github.com/mwantia/modbot/internal/dispatch"
	"github.com/mwantia/modbot/internal/event"
	"github.com/mwantia/modbot/internal/gateway"
	"github.com/mwantia/modbot/internal/handlers"
	"github.com/mwantia/modbot/internal/policy"
	"github.com/mwantia/modbot/internal/sink"
	"github.com/mwantia/modbot/pkg/db/store"
	"github.com/mwantia/modbot/pkg/log"
	"golang.org/x/sync/errgroup"
)

type ModBotAgent struct {
	mutex sync.RWMutex

	cfg *config.BaseServerConfig
	sc  *container.ServiceContainer
	log log.LoggerService

	store      store.TagStore
	rest       *gateway.REST
	sink       *sink.Sink
	dispatcher *dispatch.Dispatcher
	source     *gateway.Source
	api        *api.Server
}

func NewAgent(cfg *config.BaseServerConfig) *ModBotAgent {
	return &ModBotAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("modbot", cfg.Log),
	}
}

func (mba *ModBotAgent) setupServices(ctx context.Context) error {
	errs := container.Errors{}

	mba.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](mba.sc,
		container.With[log.LoggerService](),
		container.WithInstance(mba.log)))

	if err := errs.Errors(); err != nil {
		return err
	}

	if mba.cfg.Metadata.Enabled {
		mba.log.Debug("Opening '%s' tag store...", mba.cfg.Metadata.Type)
		tags, err := store.Open(ctx, mba.cfg.Metadata)
		if err != nil {
			return err
		}
		mba.store = tags

		mba.log.Debug("Registering 'TagStore'...")
		errs.Add(container.Register[store.GormStore](mba.sc,
			container.With[store.TagStore](),
			container.WithInstance(tags)))
	} else {
		mba.log.Warn("Persistence is disabled; tag commands will be unavailable")
	}

	loggers := map[string]log.LoggerService{}
	for _, name := range []string{"sink", "dispatch", "gateway", "api"} {
		logger, err := log.Resolve(ctx, mba.sc, name)
		if err != nil {
			return err
		}
		loggers[name] = logger
	}

	mba.rest = gateway.NewREST(mba.cfg.Gateway.APIBase, mba.cfg.Bot.Token,
		config.Duration(mba.cfg.Gateway.RequestTimeout, 15*time.Second))

	mba.sink = sink.New(mba.rest, sink.Config{
		MaxAttempts:       mba.cfg.Sink.MaxAttempts,
		BaseBackoff:       config.Duration(mba.cfg.Sink.BaseBackoff, 500*time.Millisecond),
		MaxBackoff:        config.Duration(mba.cfg.Sink.MaxBackoff, 8*time.Second),
		BulkDeleteLimit:   mba.cfg.Sink.BulkDeleteLimit,
		RequestsPerSecond: mba.cfg.Sink.RequestsPerSecond,
		Burst:             mba.cfg.Sink.Burst,
	}, loggers["sink"])

	registry, err := dispatch.NewRegistry(handlers.Commands(handlers.Options{
		OptInRoleID:      mba.cfg.Bot.OptInRoleID,
		ModmailChannelID: mba.cfg.Bot.ModmailChannelID,
		StartedAt:        time.Now(),
	}, mba.rest)...)
	if err != nil {
		return fmt.Errorf("failed to build command registry: %w", err)
	}

	gate := &policy.Gate{
		ElevatedRoleID:     mba.cfg.Bot.ElevatedRoleID,
		RestrictedRoleID:   mba.cfg.Bot.RestrictedRoleID,
		PersistenceEnabled: mba.store != nil,
	}

	mba.dispatcher = dispatch.New(dispatch.Config{
		Prefix:  mba.cfg.Bot.Prefix,
		Timeout: config.Duration(mba.cfg.Bot.InvocationTimeout, 10*time.Second),
	}, registry, gate, mba.store, mba.sink, loggers["dispatch"])

	if mba.cfg.Gateway.URL != "" {
		mba.source = gateway.NewSource(mba.cfg.Gateway.URL, mba.cfg.Bot.Token, loggers["gateway"])
	} else {
		mba.log.Warn("No gateway feed configured; no events will be received")
	}

	if mba.cfg.API.Enabled {
		gin.SetMode(gin.ReleaseMode)
		mba.api = api.NewServer(mba.cfg.API.Address, mba.store, loggers["api"])
	}

	return errs.Errors()
}

func (mba *ModBotAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mba.mutex.Lock()
	if err := mba.setupServices(ctx); err != nil {
		mba.mutex.Unlock()
		mba.cleanup(context.Background())
		return err
	}
	mba.mutex.Unlock()

	events := make(chan event.Event, 64)
	g, gctx := errgroup.WithContext(ctx)

	if mba.source != nil {
		g.Go(func() error {
			return mba.source.Run(gctx, events)
		})
	}
	g.Go(func() error {
		return mba.dispatcher.Run(gctx, events)
	})
	if mba.api != nil {
		g.Go(func() error {
			return mba.api.Serve(gctx)
		})
	}

	mba.log.Info("ModBot is running with prefix '%s'", mba.cfg.Bot.Prefix)
	err := g.Wait()
	if err != nil {
		mba.log.Error("Stopping after failure: %v", err)
	}

	timeout, perr := time.ParseDuration(mba.cfg.ShutdownTimeout)
	if perr != nil {
		timeout = 60 * time.Second
	}

	shutdown, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()

	return errors.Join(err, mba.cleanup(shutdown))
}

// cleanup drains in-flight invocations before their actions and the store go away.
func (mba *ModBotAgent) cleanup(ctx context.Context) error {
	mba.mutex.Lock()
	defer mba.mutex.Unlock()

	var errs []error
	if mba.dispatcher != nil {
		if err := drain(ctx, mba.dispatcher.Close); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain dispatcher: %w", err))
		}
	}
	if mba.sink != nil {
		if err := drain(ctx, mba.sink.Close); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain action sink: %w", err))
		}
	}
	if err := mba.sc.Cleanup(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to complete service container cleanup: %w", err))
	}
	if mba.store != nil {
		if err := mba.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close tag store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func drain(ctx context.Context, closeFn func()) error {
	done := make(chan struct{})
	go func() {
		closeFn()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
