package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/shared/config"
	"github.com/radieske/hotnot-platform-poc/internal/shared/kafka"
	"github.com/radieske/hotnot-platform-poc/internal/shared/logger"
	"github.com/radieske/hotnot-platform-poc/internal/shared/metrics"
	ev "github.com/radieske/hotnot-platform-poc/pkg/contracts/events"
)

// errNoTarget marca entregas que nunca vão resolver (shard desconhecido,
// registro inexistente): vão direto pra DLQ em vez de reciclar pra sempre.
var errNoTarget = errors.New("delivery has no resolvable target")

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.ShardID, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Kafka consumer: consome as entregas de liquidação produzidas pelos
	// sweeps dos content shards
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetOutcomes, "settlement-delivery")
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicBetOutcomesDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetOutcomesDLQ)
		defer dlqWriter.Close()
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error { return nil })

	log.Info("settlement-delivery-worker started",
		zap.String("consume", cfg.TopicBetOutcomes),
		zap.String("dlq", cfg.TopicBetOutcomesDLQ),
	)

	ctx := context.Background()

	// Loop principal: consome entregas e repassa ao shard de conta dono.
	// A entrega é at-least-once; a idempotência mora no shard receptor.
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		var d ev.OutcomeDelivery
		if jerr := json.Unmarshal(msg.Value, &d); jerr != nil {
			metrics.OutcomeDeliveries.WithLabelValues("error").Inc()
			log.Error("unmarshal outcome delivery", zap.Error(jerr))
			continue
		}

		if err := deliverOne(ctx, log, cfg, dlqWriter, &d); err != nil {
			log.Error("deliver outcome", zap.String("deliveryId", d.DeliveryID), zap.Error(err))
			// Backoff simples para evitar flood em caso de erro
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// deliverOne entrega um lançamento ao shard de conta de destino:
// 1. Resolve a URL do shard pelo mapa de configuração
// 2. POST /v1/outcomes com retry simples
// 3. Entrega irresolúvel ou esgotada vai pra DLQ
func deliverOne(
	ctx context.Context,
	log *zap.Logger,
	cfg config.Config,
	dlqWriter *kafkago.Writer,
	d *ev.OutcomeDelivery,
) error {
	err := postOutcome(ctx, cfg, d)
	if err != nil && !errors.Is(err, errNoTarget) {
		// Retry simples: tenta até 3 vezes antes de desistir
		const retries = 3
		for i := 0; i < retries; i++ {
			time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
			if err = postOutcome(ctx, cfg, d); err == nil || errors.Is(err, errNoTarget) {
				break
			}
		}
	}

	if err != nil {
		metrics.OutcomeDeliveries.WithLabelValues("dlq").Inc()
		if dlqWriter != nil {
			_ = kafka.WriteJSON(ctx, dlqWriter, d.DeliveryID, mustJSON(d))
		}
		return err
	}

	metrics.OutcomeDeliveries.WithLabelValues("delivered").Inc()
	return nil
}

// postOutcome faz a chamada receive_outcome no shard de conta
func postOutcome(ctx context.Context, cfg config.Config, d *ev.OutcomeDelivery) error {
	base, ok := cfg.AccountShardURLs[d.TargetShard]
	if !ok {
		return fmt.Errorf("%w: shard %q", errNoTarget, d.TargetShard)
	}

	body, _ := json.Marshal(map[string]any{
		"delivery_id":   d.DeliveryID,
		"content_shard": d.ContentShard,
		"post_id":       d.PostID,
		"account":       d.Account,
		"type":          d.Type,
		"amount_cents":  d.AmountCents,
		"settled_at":    d.SettledAt,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/outcomes", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// sem PlacedBetRecord do outro lado; retry não resolve
		return fmt.Errorf("%w: %s", errNoTarget, d.DeliveryID)
	case resp.StatusCode >= 300:
		return errors.New("receive_outcome http " + resp.Status)
	}
	return nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
