package betting

import (
	"errors"
	"time"
)

// Direção da aposta sobre o conteúdo.
type Direction string

const (
	Hot Direction = "HOT"
	Not Direction = "NOT"
)

// Desfecho de uma sala. Transição Ongoing -> {HotWon|NotWon|Draw} acontece
// exatamente uma vez, e só depois da janela do slot ter se esgotado.
type Outcome string

const (
	Ongoing Outcome = "ONGOING"
	HotWon  Outcome = "HOT_WON"
	NotWon  Outcome = "NOT_WON"
	Draw    Outcome = "DRAW"
)

var (
	ErrBettingClosed = errors.New("betting window closed")
	ErrInvalidStake  = errors.New("invalid stake amount")
	ErrUnknownToken  = errors.New("unknown token kind")
)

// Params são os parâmetros do jogo, sempre injetados explicitamente,
// nunca lidos de estado ambiente.
type Params struct {
	SlotDuration        time.Duration // duração de cada janela (1h)
	MaxSlots            int           // janelas de aposta por post (48 => 48h de vida)
	RoomCapacity        int           // participantes por sala (100)
	CommissionRateBps   int64         // comissão do criador sobre o pote (1000 = 10%)
	PayoutMultiplierBps int64         // multiplicador fixo do lado vencedor (18000 = 1.8x)
	DrawPaysCommission  bool          // se o empate também paga comissão ao criador
}

// DefaultParams retorna os parâmetros de produção do jogo Hot/Not.
func DefaultParams() Params {
	return Params{
		SlotDuration:        time.Hour,
		MaxSlots:            48,
		RoomCapacity:        100,
		CommissionRateBps:   1000,
		PayoutMultiplierBps: 18000,
		DrawPaysCommission:  true,
	}
}

// bpsShare aplica uma fração em basis points com arredondamento half-up.
func bpsShare(amount, bps int64) int64 {
	return (amount*bps + 5000) / 10000
}
