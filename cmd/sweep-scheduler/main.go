package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/shared/config"
	"github.com/radieske/hotnot-platform-poc/internal/shared/logger"
	"github.com/radieske/hotnot-platform-poc/internal/shared/metrics"
)

// sweep-scheduler é o colaborador externo que dispara a liquidação:
// de tempos em tempos pergunta a cada content shard quais posts ainda
// têm slot pendente e chama o sweep de cada um. Dono do "quando";
// o "como" mora inteiro no content shard.

type pendingResponse struct {
	PostIDs []string `json:"post_ids"`
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.ShardID, cfg.Env)
	defer log.Sync()

	metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error { return nil })

	interval := 30 * time.Second
	log.Info("sweep-scheduler started",
		zap.Duration("interval", interval),
		zap.Int("contentShards", len(cfg.ContentShardURLs)))

	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		for shardID, base := range cfg.ContentShardURLs {
			sweepShard(context.Background(), log, client, shardID, base)
		}
	}
}

func sweepShard(ctx context.Context, log *zap.Logger, client *http.Client, shardID, base string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v1/posts/pending", nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Warn("list pending posts", zap.String("shard", shardID), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	var pending pendingResponse
	if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
		log.Warn("decode pending posts", zap.String("shard", shardID), zap.Error(err))
		return
	}

	for _, postID := range pending.PostIDs {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/posts/"+postID+"/sweep", nil)
		if err != nil {
			continue
		}
		res, err := client.Do(req)
		if err != nil {
			log.Warn("trigger sweep", zap.String("postId", postID), zap.Error(err))
			continue
		}
		res.Body.Close()
	}
}
