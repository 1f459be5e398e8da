// Command entitlementd serves the entitlement engine: the access gate API,
// the billing webhook, and store health probes.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/lunaria/entitlement/modules/gate"
	"github.com/lunaria/entitlement/pkg/billing"
	"github.com/lunaria/entitlement/pkg/config"
	"github.com/lunaria/entitlement/pkg/entitlement"
	"github.com/lunaria/entitlement/pkg/environment"
	"github.com/lunaria/entitlement/pkg/httpserver"
	"github.com/lunaria/entitlement/pkg/logger"
	"github.com/lunaria/entitlement/pkg/mongo"
	"github.com/lunaria/entitlement/pkg/pg"
	"github.com/lunaria/entitlement/pkg/redis"
	"github.com/lunaria/entitlement/pkg/subscription"
	"github.com/lunaria/entitlement/pkg/tier"
	"github.com/lunaria/entitlement/pkg/usage"
)

type appConfig struct {
	Env string `env:"APP_ENV" envDefault:"development"`

	// TiersPath points at a YAML tier catalog; empty means built-in defaults.
	TiersPath string `env:"TIERS_PATH"`

	// UsageBackend selects where usage events live: "postgres" or "redis".
	UsageBackend string `env:"USAGE_BACKEND" envDefault:"postgres"`

	// SubscriptionBackend selects the record replica store: "postgres" or
	// "mongo".
	SubscriptionBackend string `env:"SUBSCRIPTION_BACKEND" envDefault:"postgres"`

	// MongoDatabase names the database holding subscription records when
	// SubscriptionBackend is "mongo".
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"entitlement"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Env, "entitlementd"),
	)

	if err := run(context.Background(), appCfg, log); err != nil {
		log.Error("service stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	probes := []func(context.Context) error{pg.Healthcheck(pool)}

	var usageStore usage.Store = usage.NewPGStore(pool)
	if appCfg.UsageBackend == "redis" {
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)

		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer client.Close()

		usageStore = usage.NewRedisStore(client)
		probes = append(probes, redis.Healthcheck(client))
	}

	src := tier.Source(tier.NewInMemSource(tier.DefaultTiers()))
	if appCfg.TiersPath != "" {
		src = tier.NewYAMLSource(appCfg.TiersPath)
	}
	catalog, err := tier.NewCatalog(ctx, src)
	if err != nil {
		return err
	}

	var records subscription.RecordStore = subscription.NewPGStore(pool)
	if appCfg.SubscriptionBackend == "mongo" {
		var mongoCfg mongo.Config
		config.MustLoad(&mongoCfg)

		client, err := mongo.New(ctx, mongoCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(ctx) }()

		records = subscription.NewMongoStore(client.Database(appCfg.MongoDatabase))
		probes = append(probes, mongo.Healthcheck(client))
	}

	resolver := entitlement.NewResolver(records, usageStore, catalog,
		entitlement.WithResolverLogger(log))
	cache := entitlement.NewCache(resolver,
		entitlement.WithCacheLogger(log))
	recorder := entitlement.NewRecorder(usageStore,
		entitlement.WithInvalidator(cache),
		entitlement.WithRecorderLogger(log))
	svc := entitlement.NewService(cache, recorder,
		entitlement.WithServiceLogger(log))

	var paddleCfg billing.PaddleConfig
	config.MustLoad(&paddleCfg)

	provider, err := billing.NewPaddleProvider(paddleCfg)
	if err != nil {
		return err
	}
	syncer := billing.NewSyncer(provider, records,
		billing.WithRecordInvalidator(cache),
		billing.WithSyncerLogger(log))

	r := chi.NewRouter()
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	r.Get("/readyz", httpserver.HealthCheckHandler(ctx, log, probes...))
	r.Mount("/v1", gate.Router(gate.RouterOptions{
		Service: svc,
		Syncer:  syncer,
		Logger:  log,
	}))

	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	return srv.Run(environment.WithContext(ctx, appCfg.Env), r)
}
