package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"veristry/internal/access"
	agreementservice "veristry/internal/agreement/service"
	agreementstore "veristry/internal/agreement/store"
	"veristry/internal/callertoken"
	dpservice "veristry/internal/datapermission/service"
	dpstore "veristry/internal/datapermission/store"
	"veristry/internal/events"
	identityservice "veristry/internal/identity/service"
	identitystore "veristry/internal/identity/store"
	"veristry/internal/platform/config"
	"veristry/internal/platform/httpserver"
	"veristry/internal/platform/logger"
	"veristry/internal/platform/metrics"
	platformredis "veristry/internal/platform/redis"
	"veristry/internal/replay"
	replaystore "veristry/internal/replay/store"
	"veristry/internal/signing"
	httptransport "veristry/internal/transport/http"
	"veristry/pkg/domain"
)

// main wires the registries and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Error("event publisher init failed", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	var db *sql.DB
	if cfg.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	guard := replay.NewGuard(newDigestStore(db, redisClient, log))

	gate := access.NewGate(access.NewInMemory(), publisher, log)
	if cfg.AdminPrincipal != "" {
		admin, parseErr := domain.ParsePrincipal(cfg.AdminPrincipal)
		if parseErr != nil {
			log.Error("invalid admin principal", "error", parseErr)
			os.Exit(1)
		}
		if err := gate.Bootstrap(ctx, admin); err != nil {
			log.Error("admin bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	registryAddr := domain.ZeroPrincipal
	if cfg.RegistryAddress != "" {
		registryAddr, err = domain.ParsePrincipal(cfg.RegistryAddress)
		if err != nil {
			log.Error("invalid registry address", "error", err)
			os.Exit(1)
		}
	}
	digests := signing.NewBuilder(signing.DomainParams{
		Name:            cfg.DomainName,
		Version:         cfg.DomainVersion,
		NetworkID:       cfg.NetworkID,
		RegistryAddress: registryAddr,
	})

	identities := identityservice.NewService(identitystore.NewInMemory(), gate, guard, digests, publisher, log, m)
	dataPermissions := dpservice.NewService(dpstore.NewInMemory(), identities, gate, guard, digests, publisher, log, m)
	agreements := agreementservice.NewService(agreementstore.NewInMemory(), gate, guard, digests, publisher, log, m)

	tokens := callertoken.NewManager(cfg.JWTSigningKey)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Identity:       httptransport.NewIdentityHandler(identities, log),
		DataPermission: httptransport.NewDataPermissionHandler(dataPermissions, log),
		Agreement:      httptransport.NewAgreementHandler(agreements, log),
		Admin:          httptransport.NewAdminHandler(gate, log),
		Validator:      tokens,
		Logger:         log,
		Health: func() error {
			if db != nil {
				if err := db.Ping(); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(context.Background())
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting veristry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// newDigestStore picks the consumed-digest backend. Durability preference is
// postgres, then redis, then process memory for development.
func newDigestStore(db *sql.DB, redisClient *platformredis.Client, log *slog.Logger) replay.Store {
	switch {
	case db != nil:
		return replaystore.NewPostgres(db)
	case redisClient != nil:
		return replaystore.NewRedis(redisClient.Client)
	default:
		log.Warn("no durable digest store configured, using process memory")
		return replaystore.NewInMemory()
	}
}

func newPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) > 0 {
		return events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
	}
	return events.NewMemoryPublisher(), nil
}
