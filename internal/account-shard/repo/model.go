package repo

import "time"

// Estado do PlacedBetRecord. Transição AWAITING_RESULT -> {WON|LOST|DRAW}
// acontece exatamente uma vez; é o único guarda de idempotência contra
// entregas repetidas de resultado.
const (
	BetAwaitingResult = "AWAITING_RESULT"
	BetWon            = "WON"
	BetLost           = "LOST"
	BetDraw           = "DRAW"
)

// PlacedBet é o registro local da aposta, guardado no shard do apostador.
// Uma conta tem no máximo um registro por (content shard, post), pela vida
// toda do post. Nunca é apagado; muda uma única vez na liquidação.
type PlacedBet struct {
	ContentShard string
	PostID       string
	Account      string
	Slot         int
	RoomNo       int
	Direction    string // HOT | NOT
	StakeCents   int64
	PlacedAt     time.Time
	Outcome      string
	PayoutCents  int64 // valor creditado em WON/DRAW; 0 em LOST
}
