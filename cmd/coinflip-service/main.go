package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/bet"
	chttp "github.com/radieske/coinflip-platform-poc/internal/coinflip-service/http"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/house"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/ledger"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/producer"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/repo"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/settle"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/txcache"
	"github.com/radieske/coinflip-platform-poc/internal/coinflip-service/verify"
	"github.com/radieske/coinflip-platform-poc/internal/shared/cache"
	"github.com/radieske/coinflip-platform-poc/internal/shared/config"
	"github.com/radieske/coinflip-platform-poc/internal/shared/db"
	skafka "github.com/radieske/coinflip-platform-poc/internal/shared/kafka"
	"github.com/radieske/coinflip-platform-poc/internal/shared/logger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logg, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logg.Sync()

	// Chave da casa: ausente ou ilegível é fatal, o serviço não sobe
	custodian, err := house.Load(cfg.HouseSecretKey)
	if err != nil {
		logg.Fatal("house key", zap.Error(err))
	}

	// Postgres: registro de idempotência das liquidações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		logg.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis: cache curto de transações buscadas
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		logg.Fatal("redis", zap.Error(err))
	}

	// Kafka writer (topic wager_settled)
	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettled)
	defer writer.Close()

	// deps
	lc := ledger.NewRPC(cfg.SolanaRPCURL)
	txCache := txcache.New(rdb, 30*time.Second, logg)
	verifier := verify.NewVerifier(logg, lc, txCache, custodian.Address(), cfg.PriceLamports)
	store := repo.NewPostgres(pg)
	publ := producer.NewKafkaPublisher(writer, cfg.TopicWagerSettled)
	engine := settle.NewEngine(logg, verifier, lc, custodian, store, publ, settle.CryptoRand{}, cfg.PriceLamports)
	preparer := bet.NewPreparer(lc, custodian.Address(), cfg.PriceLamports)

	// HTTP público
	api := chttp.NewServer(logg, preparer, engine, lc, custodian.Address(), cfg.SolanaNetwork, cfg.PriceLamports, cfg.CORSAllowOrigin)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		if _, _, err := lc.LatestBlockhash(ctx, rpc.CommitmentProcessed); err != nil {
			return err
		}
		return nil
	})

	logg.Info("coinflip-service listening",
		zap.String("addr", ":"+cfg.HTTPPort),
		zap.String("network", cfg.SolanaNetwork),
		zap.String("house", custodian.Address().String()),
		zap.Uint64("price_lamports", cfg.PriceLamports),
	)
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal("api", zap.Error(err))
	}
}
