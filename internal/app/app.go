// Package app wires configuration into the storage backends and services.
// The HTTP server and the benchmark tool share it.
package app

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/persona-graph/config"
	"github.com/d60-Lab/persona-graph/internal/api/handler"
	"github.com/d60-Lab/persona-graph/internal/repository"
	"github.com/d60-Lab/persona-graph/internal/service"
	"github.com/d60-Lab/persona-graph/internal/session"
	"github.com/d60-Lab/persona-graph/pkg/cache"
	"github.com/d60-Lab/persona-graph/pkg/database"
	"github.com/d60-Lab/persona-graph/pkg/logger"
	"github.com/d60-Lab/persona-graph/pkg/token"
)

// App 持有连接与已装配的服务
type App struct {
	DB    *gorm.DB
	Redis *redis.Client
	Neo4j neo4j.DriverWithContext

	Names       service.NamePolicy
	Personas    service.PersonaRegistry
	Graph       service.RelationshipService
	Binder      *service.Binder
	Coordinator *service.Coordinator
	Freets      *service.FreetService
	Accounts    *service.AccountService
	Tokens      *token.Manager
}

// New 按配置打开存储并装配服务；失败时已打开的连接会被关闭
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	a = &App{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close(ctx))
			a = nil
		}
	}()

	if a.DB, err = database.InitDB(cfg); err != nil {
		return a, fmt.Errorf("init database: %w", err)
	}

	store, err := a.sessionStore(ctx, cfg)
	if err != nil {
		return a, err
	}
	followRepo, err := a.followRepository(ctx, cfg)
	if err != nil {
		return a, err
	}

	a.Names = service.NewNamePolicy(cfg.Persona.NameMaxGroups)
	a.Personas = service.NewPersonaRegistry(repository.NewPersonaRepository(a.DB), a.Names)
	a.Graph = service.NewRelationshipService(followRepo, a.Personas)
	a.Binder = service.NewBinder(a.Personas, store)
	freetRepo := repository.NewFreetRepository(a.DB)
	a.Coordinator = service.NewCoordinator(a.Personas, a.Graph, freetRepo)
	a.Freets = service.NewFreetService(freetRepo, a.Personas)
	a.Accounts = service.NewAccountService(repository.NewUserRepository(a.DB), a.Coordinator, a.Binder)
	a.Tokens = token.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	return a, nil
}

func (a *App) sessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	if cfg.Session.Store == "memory" {
		logger.Info("session store: memory")
		return session.NewMemoryStore(cfg.Session.TTL), nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}
	a.Redis = client
	logger.Info("session store: redis", zap.String("addr", cfg.Redis.Addr))
	return session.NewRedisStore(client, cfg.Session.TTL), nil
}

func (a *App) followRepository(ctx context.Context, cfg *config.Config) (repository.FollowRepository, error) {
	if cfg.Graph.Backend != "neo4j" {
		return repository.NewFollowRepository(a.DB), nil
	}
	driver, err := neo4j.NewDriverWithContext(cfg.Graph.Neo4jURI,
		neo4j.BasicAuth(cfg.Graph.Neo4jUser, cfg.Graph.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("init neo4j driver: %w", err)
	}
	a.Neo4j = driver
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity %s: %w", cfg.Graph.Neo4jURI, err)
	}
	repo := repository.NewNeo4jFollowRepository(driver)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("follow graph backend: neo4j", zap.String("uri", cfg.Graph.Neo4jURI))
	return repo, nil
}

// Handler 构造 HTTP handler
func (a *App) Handler() *handler.Handler {
	return handler.New(handler.Deps{
		Accounts:    a.Accounts,
		Personas:    a.Personas,
		Graph:       a.Graph,
		Binder:      a.Binder,
		Coordinator: a.Coordinator,
		Freets:      a.Freets,
		Tokens:      a.Tokens,
	})
}

// Health 逐个探测已打开的后端
func (a *App) Health(ctx context.Context) error {
	var errs error
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err != nil {
			errs = multierr.Append(errs, err)
		} else {
			errs = multierr.Append(errs, sqlDB.PingContext(ctx))
		}
	}
	if a.Redis != nil {
		errs = multierr.Append(errs, a.Redis.Ping(ctx).Err())
	}
	if a.Neo4j != nil {
		errs = multierr.Append(errs, a.Neo4j.VerifyConnectivity(ctx))
	}
	return errs
}

// Close 关闭所有连接，合并错误
func (a *App) Close(ctx context.Context) error {
	var errs error
	if a.Neo4j != nil {
		errs = multierr.Append(errs, a.Neo4j.Close(ctx))
	}
	if a.Redis != nil {
		errs = multierr.Append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = multierr.Append(errs, sqlDB.Close())
		}
	}
	return errs
}
