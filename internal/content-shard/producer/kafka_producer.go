package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/hotnot-platform-poc/pkg/contracts/events"
)

// KafkaPublisher publica as entregas de liquidação no tópico bet_outcomes
// (o writer já carrega o tópico). A chave é o DeliveryID, estável entre
// reenvios da mesma entrega.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: w}
}

func (p *KafkaPublisher) PublishOutcome(ctx context.Context, d events.OutcomeDelivery) error {
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(d.DeliveryID),
		Value: b,
	})
}
