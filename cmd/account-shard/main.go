package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/account-shard/content"
	ahttp "github.com/radieske/hotnot-platform-poc/internal/account-shard/http"
	"github.com/radieske/hotnot-platform-poc/internal/account-shard/repo"
	"github.com/radieske/hotnot-platform-poc/internal/account-shard/service"
	"github.com/radieske/hotnot-platform-poc/internal/betting"
	"github.com/radieske/hotnot-platform-poc/internal/shared/config"
	"github.com/radieske/hotnot-platform-poc/internal/shared/db"
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

	// Postgres (ledger + placed bets)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// deps
	repository := repo.NewPostgres(pg)
	contentClient := content.New(cfg.ContentShardURLs)

	svc := service.New(log, cfg.ShardID, game, repository, contentClient, clockwork.NewRealClock())

	// HTTP público
	api := ahttp.NewServer(log, svc)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("account-shard listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
