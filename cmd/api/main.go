package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"

    "deliverydesk/internal/api"
    "deliverydesk/internal/config"
    "deliverydesk/internal/console"
    "deliverydesk/internal/localstore"
    "deliverydesk/internal/logger"
    "deliverydesk/internal/store"
)

const serviceName = "deliverydesk"

func main() {
    logg := logger.New(logger.Options{ServiceName: serviceName})
    if err := godotenv.Load(); err != nil {
        logg.Debug(context.Background(), ".env file not found, relying on environment")
    }

    cfg, err := config.Load()
    if err != nil {
        logg.Error(context.Background(), "failed to load config", err)
        os.Exit(1)
    }
    logg = logger.New(logger.Options{ServiceName: serviceName, Level: logger.ParseLevel(cfg.LogLevel), Format: cfg.LogFormat})

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if err := run(ctx, cfg, logg); err != nil {
        logg.Error(context.Background(), "deliverydesk stopped", err)
        os.Exit(1)
    }
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
    var closers []func() error
    defer func() {
        for i := len(closers) - 1; i >= 0; i-- {
            if err := closers[i](); err != nil { logg.Error(context.Background(), "error during shutdown", err) }
        }
    }()

    // Broker selection
    var broker store.ChangeBroker = store.NewBroker()
    if cfg.RedisURL != "" {
        rb, err := store.NewRedisBroker(cfg.RedisURL)
        if err != nil {
            logg.Error(ctx, "redis broker unavailable, using in-process fan-out", err)
        } else {
            broker = rb
            closers = append(closers, rb.Close)
        }
    }

    var st store.Store
    if cfg.DatabaseURL == "" {
        st = store.NewMemoryWithBroker(broker)
    } else {
        pg, err := store.NewPostgres(cfg.DatabaseURL, broker)
        if err != nil { return err }
        closers = append(closers, pg.Close)
        if err := pg.Migrate(ctx); err != nil { return err }
        st = pg
    }

    local, err := openLocalStore(ctx, cfg)
    if err != nil { return err }
    if c, ok := local.(interface{ Close() error }); ok { closers = append(closers, c.Close) }

    ctrl := console.New(console.Options{
        Store:           st,
        Local:           local,
        Log:             logg,
        MaxAttempts:     cfg.QueueMaxAttempts,
        CreatePerMinute: cfg.CreateRatePerMin,
        Online:          cfg.StartOnline,
    })
    if err := ctrl.Start(ctx); err != nil {
        logg.Error(ctx, "initial order load failed", err)
    }
    go ctrl.Watch(ctx)

    srvDeps := api.NewServer(ctrl, st, logg)
    srvDeps.Settings = map[string]any{
        "port":             cfg.Port,
        "localStore":       cfg.LocalStore,
        "queueMaxAttempts": cfg.QueueMaxAttempts,
        "createRatePerMin": cfg.CreateRatePerMin,
        "hasDatabaseURL":   cfg.DatabaseURL != "",
        "hasRedisURL":      cfg.RedisURL != "",
    }
    srv := &http.Server{
        Addr:              cfg.Addr(),
        Handler:           srvDeps.Router(),
        ReadHeaderTimeout: 5 * time.Second,
    }

    errCh := make(chan error, 1)
    go func() {
        logg.Info(logg.WithField(ctx, "addr", srv.Addr), "API listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
        close(errCh)
    }()

    select {
    case err := <-errCh:
        return err
    case <-ctx.Done():
    }
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    return srv.Shutdown(shutdownCtx)
}

func openLocalStore(ctx context.Context, cfg *config.Config) (localstore.Storage, error) {
    switch cfg.LocalStore {
    case config.LocalStoreFile:
        return localstore.NewFile(cfg.LocalStorePath)
    case config.LocalStoreRedis:
        return localstore.NewRedis(ctx, cfg.RedisURL)
    }
    return localstore.NewMemory(), nil
}
