package events

// Evento emitido pelo content shard a cada aposta registrada.
// Alimenta o feed ao vivo (pub/sub Redis + WebSocket) e o tópico de atividade.
type BetRegistered struct {
	PostID       string `json:"post_id"`
	Slot         int    `json:"slot"`
	Room         int    `json:"room"`
	Direction    string `json:"direction"` // HOT | NOT
	StakeCents   int64  `json:"stake_cents"`
	PotCents     int64  `json:"pot_cents"`
	Participants int    `json:"participants"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
