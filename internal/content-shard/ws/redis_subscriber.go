package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/pkg/contracts/events"
)

// RedisFeed publica a atividade de apostas no canal Pub/Sub. É o lado
// produtor do feed ao vivo; melhor esforço, nunca bloqueia o registro.
type RedisFeed struct {
	Log     *zap.Logger
	Client  *redis.Client
	Channel string
}

func (f *RedisFeed) PublishBetRegistered(ctx context.Context, e events.BetRegistered) {
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := f.Client.Publish(ctx, f.Channel, b).Err(); err != nil {
		f.Log.Warn("live feed publish", zap.Error(err))
	}
}

// StartRedisSubscriber escuta o canal Pub/Sub e repassa cada atualização
// para os clientes WebSocket inscritos via Hub.
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var e events.BetRegistered
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					log.Warn("ws subscriber unmarshal", zap.Error(err))
					continue
				}
				hub.Broadcast(RoomUpdate{PostID: e.PostID, Payload: e})
			}
		}
	}()
}
