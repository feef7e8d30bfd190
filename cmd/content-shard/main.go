package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/betting"
	ccache "github.com/radieske/hotnot-platform-poc/internal/content-shard/cache"
	chttp "github.com/radieske/hotnot-platform-poc/internal/content-shard/http"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/producer"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/repo"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/service"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/ws"
	scache "github.com/radieske/hotnot-platform-poc/internal/shared/cache"
	"github.com/radieske/hotnot-platform-poc/internal/shared/config"
	"github.com/radieske/hotnot-platform-poc/internal/shared/db"
	skafka "github.com/radieske/hotnot-platform-poc/internal/shared/kafka"
	"github.com/radieske/hotnot-platform-poc/internal/shared/logger"
	"github.com/radieske/hotnot-platform-poc/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.ShardID, cfg.Env)
	defer log.Sync()

	params := betting.Params{
		SlotDuration:        cfg.SlotDuration,
		MaxSlots:            cfg.MaxSlots,
		RoomCapacity:        cfg.RoomCapacity,
		CommissionRateBps:   cfg.CommissionRateBps,
		PayoutMultiplierBps: cfg.PayoutMultiplierBps,
		DrawPaysCommission:  cfg.DrawPaysCommission,
	}
	game, err := betting.NewGame(betting.TokenCents, params)
	if err != nil {
		log.Fatal("game", zap.Error(err))
	}

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (cache de status + pub/sub do feed ao vivo)
	rdb, err := scache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writer (tópico bet_outcomes)
	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetOutcomes)
	defer writer.Close()

	// deps
	repository := repo.NewPostgres(pg, params)
	publ := producer.NewKafkaPublisher(writer)
	feed := &ws.RedisFeed{Log: log, Client: rdb, Channel: cfg.RedisPubSubChannel}
	statusCache := ccache.NewRedisStatusCache(rdb, 30*time.Second)

	svc := service.New(log, cfg.ShardID, params, game,
		repository, publ, feed, statusCache, clockwork.NewRealClock())

	// feed ao vivo: hub WebSocket alimentado pelo canal pub/sub
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(context.Background(), log, rdb, cfg.RedisPubSubChannel, hub)

	// HTTP público
	api := chttp.NewServer(log, svc, hub)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("content-shard listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
