package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/nicue/internal/cache"
	"github.com/dropDatabas3/nicue/internal/config"
	"github.com/dropDatabas3/nicue/internal/fingerprint"
	"github.com/dropDatabas3/nicue/internal/gate"
	httpx "github.com/dropDatabas3/nicue/internal/http"
	healthctrl "github.com/dropDatabas3/nicue/internal/http/controllers/health"
	keysctrl "github.com/dropDatabas3/nicue/internal/http/controllers/keys"
	statusctrl "github.com/dropDatabas3/nicue/internal/http/controllers/status"
	"github.com/dropDatabas3/nicue/internal/http/router"
	keysvc "github.com/dropDatabas3/nicue/internal/http/services/keys"
	keysreg "github.com/dropDatabas3/nicue/internal/keys"
	"github.com/dropDatabas3/nicue/internal/observability/logger"
	"github.com/dropDatabas3/nicue/internal/rate"
)

func main() {
	var (
		configPath  = flag.String("config", "", "ruta al YAML de configuración (opcional)")
		envFile     = flag.String("env-file", ".env", "archivo .env a cargar")
		printConfig = flag.Bool("print-config", false, "imprime la config efectiva y sale")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "no pude cargar %s: %v\n", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config inválida: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		out, _ := yaml.Marshal(cfg)
		fmt.Print(string(out))
		return
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "nicue-keyserver",
		Version:     healthctrl.Version,
	})
	defer logger.Sync()
	log := logger.L()

	if err := run(cfg); err != nil {
		log.Fatal("server exited with error", logger.Err(err))
	}
	log.Info("server stopped")
}

func run(cfg *config.Config) error {
	log := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheTTL := config.Dur(cfg.Fingerprint.CacheTTL, 60*time.Minute)
	memo, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cacheTTL,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer memo.Close()

	engine := fingerprint.New(memo, cacheTTL)
	limiter := rate.NewMemoryLimiter(
		cfg.Rate.MaxPerMinute,
		config.Dur(cfg.Rate.Window, time.Minute),
	)

	store := keysreg.NewStore(keysreg.Config{
		Lifetime: config.Dur(cfg.Keys.Lifetime, 20*time.Minute),
		IDLength: cfg.Keys.Length,
		Capacity: cfg.Keys.MaxInMemory,
	}, engine, limiter)

	sweeper := keysreg.NewSweeper(store, config.Dur(cfg.Keys.CleanupInterval, 3*time.Minute))

	var gateClient *gate.Client
	if cfg.Gate.Enabled {
		gateClient = gate.New(cfg.Gate.APIKey, cfg.Gate.BaseURL)
	}

	service := keysvc.NewKeyService(keysvc.KeyDeps{
		Store:       store,
		Gate:        gateClient,
		GateEnabled: cfg.Gate.Enabled,
	})

	metricsHandler, err := httpx.RegisterMetrics(httpx.MetricsConfig{Store: store})
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	var gatewayLimiter rate.Limiter
	if cfg.Rate.Gateway.Enabled {
		gatewayLimiter, err = rate.New(rate.Config{
			Driver: cfg.Rate.Gateway.Driver,
			Max:    cfg.Rate.Gateway.Max,
			Window: config.Dur(cfg.Rate.Gateway.Window, time.Minute),
			Prefix: "gw",
			Addr:   cfg.Cache.Redis.Addr,
			DB:     cfg.Cache.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("gateway limiter: %w", err)
		}
	}

	var blockedAgents []string
	if cfg.Filter.Enabled {
		blockedAgents = cfg.Filter.BlockedAgents
	}

	handler := router.New(router.Deps{
		Keys:           keysctrl.NewKeyController(service),
		Status:         statusctrl.NewStatusController(store),
		Health:         healthctrl.NewHealthController(store),
		Metrics:        metricsHandler,
		GatewayLimiter: gatewayLimiter,
		BlockedAgents:  blockedAgents,
		Instrument:     httpx.WithMetrics(),
	})

	log.Info("starting key server",
		logger.String("addr", cfg.Server.Addr),
		logger.Duration("key_lifetime", store.Lifetime()),
		logger.Int("capacity", store.Capacity()),
		logger.Any("gate_enabled", cfg.Gate.Enabled),
		logger.Any("client_filter", cfg.Filter.Enabled),
		logger.String("cache_driver", cfg.Cache.Kind),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return httpx.Serve(gctx, cfg.Server.Addr, handler) })
	return g.Wait()
}
