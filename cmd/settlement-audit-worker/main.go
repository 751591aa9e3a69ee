package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/coinflip-platform-poc/internal/shared/config"
	"github.com/radieske/coinflip-platform-poc/internal/shared/db"
	skafka "github.com/radieske/coinflip-platform-poc/internal/shared/kafka"
	"github.com/radieske/coinflip-platform-poc/internal/shared/logger"
	"github.com/radieske/coinflip-platform-poc/internal/shared/metrics"
	ev "github.com/radieske/coinflip-platform-poc/pkg/contracts/events"
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

	// Postgres: trilha de auditoria das liquidações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		logg.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: consome eventos wager_settled
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicWagerSettled, "settlement-audit")
	defer reader.Close()

	// DLQ para mensagens que não conseguimos processar
	dlqWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettledDLQ)
	defer dlqWriter.Close()

	// Servidor HTTP para métricas Prometheus e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	logg.Info("settlement-audit-worker started",
		zap.String("consume", cfg.TopicWagerSettled),
		zap.String("dlq", cfg.TopicWagerSettledDLQ),
	)

	ctx := context.Background()

	// Loop principal: consome eventos e grava a trilha de auditoria
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			logg.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled ev.WagerSettled
		if jerr := json.Unmarshal(msg.Value, &settled); jerr != nil {
			logg.Error("unmarshal wager_settled", zap.Error(jerr))
			_ = skafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
			continue
		}

		if err := insertAudit(ctx, pg, &settled); err != nil {
			// Retry simples antes de mandar pra DLQ
			const retries = 3
			for i := 0; i < retries; i++ {
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
				if err = insertAudit(ctx, pg, &settled); err == nil {
					break
				}
			}
			if err != nil {
				logg.Error("audit insert", zap.String("signature", settled.Signature), zap.Error(err))
				_ = skafka.WriteJSON(ctx, dlqWriter, settled.Signature, msg.Value)
			}
		}
	}
}

// insertAudit grava uma linha de auditoria por evento de liquidação.
func insertAudit(ctx context.Context, pg *sql.DB, e *ev.WagerSettled) error {
	_, err := pg.ExecContext(ctx, `
		INSERT INTO settlement_audit (signature, player, outcome, payout_signature, amount_lamports, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())`,
		e.Signature, e.Player, e.Outcome, e.PayoutSignature, e.WagerLamports)
	return err
}
