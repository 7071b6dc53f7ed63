package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/mongomembership/pkg/config"
	"github.com/dmitrymomot/mongomembership/pkg/logger"
	"github.com/dmitrymomot/mongomembership/pkg/membership"
	"github.com/dmitrymomot/mongomembership/pkg/mongo"
	"github.com/dmitrymomot/mongomembership/pkg/mongostore"
	"github.com/dmitrymomot/mongomembership/pkg/redis"
	"github.com/dmitrymomot/mongomembership/pkg/sequence"
)

const (
	backendMongo = "mongo"
	backendRedis = "redis"
)

// cliConfig holds settings that only the command itself reads.
type cliConfig struct {
	Env             string `env:"APP_ENV" envDefault:"development" validate:"oneof=development dev staging stage production prod"`
	LogFormat       string `env:"LOG_FORMAT"`
	SequenceBackend string `env:"SEQUENCE_BACKEND" envDefault:"mongo" validate:"oneof=mongo redis"`
}

// app is everything a command needs. Commands never touch drivers directly.
type app struct {
	cfg      membership.Config
	accounts membership.AccountStore
	roles    membership.RoleStore
	ids      sequence.Allocator
	registry *prometheus.Registry

	setup  func(context.Context) error
	checks map[string]func(context.Context) error
	close  func(context.Context) error
}

// connector builds the app once configuration and logging are in place.
type connector func(ctx context.Context, cli cliConfig, log *slog.Logger) (*app, error)

// newServices wires the engines over storage with the shared config, logger and metrics.
func newServices(storage membership.Storage, cfg membership.Config, log *slog.Logger) (membership.AccountStore, membership.RoleStore, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	metrics := membership.NewMetrics(registry)

	accounts := membership.NewAccountService(storage,
		membership.WithAccountConfig(cfg),
		membership.WithAccountLogger(log),
		membership.WithAccountMetrics(metrics),
	)
	roles := membership.NewRoleService(storage,
		membership.WithRoleLogger(log),
		membership.WithRoleOperationTimeout(cfg.OperationTimeout),
		membership.WithRoleMetrics(metrics),
	)
	return accounts, roles, registry
}

// databaseName picks MONGODB_DATABASE, then the database in the URL, then the application name.
func databaseName(cfg mongo.Config, appName string) (string, error) {
	if cfg.Database != "" {
		return cfg.Database, nil
	}
	name, err := mongo.DatabaseFromURL(cfg.ConnectionURL)
	if errors.Is(err, mongo.ErrNoDatabaseName) {
		return appName, nil
	}
	return name, err
}

// connect wires the MongoDB store and, when configured, the Redis allocator.
func connect(ctx context.Context, cli cliConfig, log *slog.Logger) (*app, error) {
	var (
		mongoCfg    mongo.Config
		engineCfg   membership.Config
		collections mongostore.Config
	)
	for _, load := range []func() error{
		func() error { return config.Load(&mongoCfg) },
		func() error { return config.Load(&engineCfg) },
		func() error { return config.Load(&collections) },
	} {
		if err := load(); err != nil {
			return nil, err
		}
	}
	if err := engineCfg.Validate(); err != nil {
		return nil, err
	}

	dbName, err := databaseName(mongoCfg, engineCfg.ApplicationName)
	if err != nil {
		return nil, err
	}
	db, err := mongo.NewWithDatabase(ctx, mongoCfg, dbName)
	if err != nil {
		return nil, err
	}
	log.DebugContext(ctx, "connected to mongo", logger.Component("cli"), slog.String("database", dbName))

	a := &app{
		cfg:    engineCfg,
		checks: map[string]func(context.Context) error{backendMongo: mongo.Healthcheck(db.Client())},
	}
	closers := []func(context.Context) error{db.Client().Disconnect}

	switch cli.SequenceBackend {
	case backendRedis:
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, err
		}
		a.ids = sequence.NewRedisAllocator(client, sequence.WithKeyPrefix(redisCfg.KeyPrefix))
		a.checks[backendRedis] = redis.Healthcheck(client)
		closers = append(closers, func(context.Context) error { return client.Close() })
	default:
		a.ids = sequence.NewMongoAllocator(db.Collection(collections.SequenceCollection))
	}

	store := mongostore.New(db, collections, a.ids, mongostore.WithLogger(log))
	a.setup = store.EnsureIndexes
	a.accounts, a.roles, a.registry = newServices(store, engineCfg, log)
	a.close = func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i](ctx))
		}
		return errors.Join(errs...)
	}
	return a, nil
}

// newLogger builds the command logger from APP_ENV; LOG_FORMAT overrides the environment's format.
func newLogger(cli cliConfig, opts ...logger.Option) (*slog.Logger, error) {
	all := []logger.Option{logger.WithEnvironment(cli.Env, "membershipctl")}
	if cli.LogFormat != "" {
		format, err := logger.ParseFormat(cli.LogFormat)
		if err != nil {
			return nil, fmt.Errorf("LOG_FORMAT: %w", err)
		}
		all = append(all, logger.WithFormat(format))
	}
	return logger.New(append(all, opts...)...), nil
}
