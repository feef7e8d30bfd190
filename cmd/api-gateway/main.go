package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/shared/config"
	"github.com/radieske/hotnot-platform-poc/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

// shardRouter roteia /api/{kind}/{shardID}/... para o shard dono,
// removendo o prefixo antes de repassar.
func shardRouter(log *zap.Logger, prefix string, shards map[string]string) http.Handler {
	proxies := make(map[string]*httputil.ReverseProxy, len(shards))
	for id, base := range shards {
		proxies[id] = rp(base)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, prefix)
		shardID, tail, ok := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
		if !ok || shardID == "" {
			http.Error(w, "shard required", http.StatusBadRequest)
			return
		}
		proxy, found := proxies[shardID]
		if !found {
			log.Warn("unknown shard", zap.String("shard", shardID))
			http.Error(w, "unknown shard", http.StatusNotFound)
			return
		}
		r.URL.Path = "/" + tail
		proxy.ServeHTTP(w, r)
	})
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.ShardID, cfg.Env)
	defer log.Sync()

	mux := http.NewServeMux()

	// contas (ex.: /api/accounts/{shard}/v1/... -> account shard dono)
	mux.Handle("/api/accounts/", shardRouter(log, "/api/accounts", cfg.AccountShardURLs))

	// conteúdo (ex.: /api/content/{shard}/v1/... -> content shard dono)
	mux.Handle("/api/content/", shardRouter(log, "/api/content", cfg.ContentShardURLs))

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("gateway", zap.Error(err))
	}
}
