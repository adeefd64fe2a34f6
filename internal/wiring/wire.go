package wiring

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/zflow-run/zflow/pkg/executor"
	"github.com/zflow-run/zflow/pkg/httpapi"
	"github.com/zflow-run/zflow/pkg/kv"
	"github.com/zflow-run/zflow/pkg/registry"
)

// Config is the resolved set of values EnvConfig produces, consumed by
// the wiring components below.
type Config struct {
	ListenAddr      string
	KVBackend       string // "memory" | "sqlite" | "cassandra"
	SQLitePath      string
	CassandraHosts  []string
	CassandraKeyspace string
}

// LoadConfig reads Config from the environment, prefixed ZFLOW_.
func LoadConfig() Config {
	env := NewEnvConfig("ZFLOW_")
	return Config{
		ListenAddr:        env.GetString("LISTEN_ADDR", ":8080"),
		KVBackend:         env.GetString("KV_BACKEND", "memory"),
		SQLitePath:        env.GetString("SQLITE_PATH", "zflow.db"),
		CassandraHosts:    env.GetStringSlice("CASSANDRA_HOSTS", []string{"127.0.0.1"}),
		CassandraKeyspace: env.GetString("CASSANDRA_KEYSPACE", "zflow"),
	}
}

// App is the fully wired service: an HTTP handler plus the executor
// behind it. Build has already run the executor's RestartAll; the CLI
// launcher serves Echo and calls Dispose on shutdown.
type App struct {
	Echo     *echo.Echo
	Executor executor.Executor
	scope    *Scope
}

// Build wires the KV backend, registry, executor and HTTP server
// according to cfg, the way cmd/zflowd's serve command does at startup.
// Each component is declared with Provide and pulled with Resolve so the
// LoggingExtension observes every resolution, matching the teacher's
// examples/http-api main.go (NewScope + WithExtension) wiring shape.
func Build(cfg Config, log *logrus.Logger) (*App, error) {
	scope := NewScope(NewLoggingExtension(log))

	storeComponent := Provide("kv-store", func(s *Scope) (kv.Store, error) {
		return buildStore(cfg, s)
	})
	store, err := Resolve(scope, storeComponent)
	if err != nil {
		return nil, err
	}

	regComponent := Provide("registry", func(s *Scope) (*registry.Registry, error) {
		return registry.New(store), nil
	})
	reg, err := Resolve(scope, regComponent)
	if err != nil {
		return nil, err
	}

	execComponent := Provide("executor", func(s *Scope) (executor.Executor, error) {
		ref := executor.NewReference(store)
		if err := ref.RestartAll(context.Background()); err != nil {
			return nil, fmt.Errorf("restart flows: %w", err)
		}
		return ref, nil
	})
	exec, err := Resolve(scope, execComponent)
	if err != nil {
		return nil, err
	}

	serverComponent := Provide("http-server", func(s *Scope) (*httpapi.Server, error) {
		return httpapi.New(exec, reg), nil
	})
	server, err := Resolve(scope, serverComponent)
	if err != nil {
		return nil, err
	}

	return &App{Echo: httpapi.NewEcho(server, log), Executor: exec, scope: scope}, nil
}

// Dispose releases every resource the build step opened (storage
// handles, in that order).
func (a *App) Dispose() error { return a.scope.Dispose() }

func buildStore(cfg Config, scope *Scope) (kv.Store, error) {
	switch cfg.KVBackend {
	case "memory":
		return kv.NewMemoryStore(), nil

	case "sqlite":
		store, err := kv.OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		scope.OnClose(store.Close)
		return store, nil

	case "cassandra":
		store, err := kv.OpenCassandraStore(cfg.CassandraHosts, cfg.CassandraKeyspace)
		if err != nil {
			return nil, err
		}
		scope.OnClose(func() error { store.Close(); return nil })
		return store, nil

	default:
		return nil, fmt.Errorf("unknown ZFLOW_KV_BACKEND %q", cfg.KVBackend)
	}
}
