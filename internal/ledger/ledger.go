package ledger

import "time"

// Motivos dos lançamentos. O log é append-only: lançamentos nunca são
// alterados nem removidos; o saldo é sempre o fold do histórico.
type Reason string

const (
	Deposit       Reason = "DEPOSIT"
	Stake         Reason = "STAKE"
	StakeRefund   Reason = "STAKE_REFUND"
	OutcomePayout Reason = "OUTCOME_PAYOUT"
	Commission    Reason = "COMMISSION"
)

// Event é um lançamento com valor sinalizado: débitos negativos,
// créditos positivos. ExternalRef amarra o lançamento à operação de
// origem (aposta, entrega de resultado) e dá idempotência ao insert.
type Event struct {
	ID          string    `json:"id"`
	Account     string    `json:"account"`
	AmountCents int64     `json:"amount_cents"`
	Reason      Reason    `json:"reason"`
	ExternalRef string    `json:"external_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Fold reconstrói o saldo a partir do histórico. Nunca materializamos o
// saldo em separado: um StakeRefund pareado com o Stake anterior é o
// único ajuste "negativo" que o modelo admite.
func Fold(events []Event) int64 {
	var balance int64
	for _, e := range events {
		balance += e.AmountCents
	}
	return balance
}

// Page é uma página do histórico em ordem cronológica inversa.
// NextCursor vazio indica fim do histórico.
type Page struct {
	Events     []Event `json:"events"`
	NextCursor string  `json:"next_cursor,omitempty"`
}
