package events

import "time"

// Tipos de entrega produzidos pelo settlement sweeper.
const (
	DeliveryPayout     = "PAYOUT"      // lado majoritário: stake * multiplicador
	DeliveryDrawRefund = "DRAW_REFUND" // empate: devolução 1.0x
	DeliveryLoss       = "LOSS"        // lado minoritário: valor zero, só resolve o registro
	DeliveryCommission = "COMMISSION"  // 10% do pote para o criador do post
)

// OutcomeDelivery é a mensagem publicada no tópico bet_outcomes para cada
// participante (e para o criador, no caso da comissão) após a tabulação de
// uma sala. Entrega é at-least-once; o shard de conta aplica idempotência.
type OutcomeDelivery struct {
	DeliveryID   string    `json:"delivery_id"` // (post,slot,room,conta,tipo), estável entre reenvios
	ContentShard string    `json:"content_shard"`
	PostID       string    `json:"post_id"`
	Slot         int       `json:"slot"`
	Room         int       `json:"room"`
	TargetShard  string    `json:"target_shard"` // shard de conta que deve receber o crédito
	Account      string    `json:"account"`
	Type         string    `json:"type"`         // PAYOUT | DRAW_REFUND | LOSS | COMMISSION
	AmountCents  int64     `json:"amount_cents"` // 0 para LOSS
	RoomOutcome  string    `json:"room_outcome"` // HOT_WON | NOT_WON | DRAW
	SettledAt    time.Time `json:"settled_at"`
}
