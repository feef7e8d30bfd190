package dto

import (
	"time"

	"github.com/radieske/hotnot-platform-poc/internal/ledger"
)

type RegisterAccountRequest struct {
	Account string `json:"account"`
}

type DepositRequest struct {
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"external_ref,omitempty"` // opcional p/ idempotência simples
}

type BalanceResponse struct {
	Account      string `json:"account"`
	BalanceCents int64  `json:"balance_cents"`
}

// PlaceBetRequest é o ponto de entrada do apostador. A conta vem do
// header X-Account-ID e precisa bater com o dono da sessão.
type PlaceBetRequest struct {
	ContentShard string `json:"content_shard"`
	PostID       string `json:"post_id"`
	AmountCents  int64  `json:"amount_cents"`
	Direction    string `json:"direction"` // HOT | NOT
}

type PlaceBetResponse struct {
	Status           string    `json:"status"` // OPEN | CLOSED
	StartedAt        time.Time `json:"started_at"`
	Slot             int       `json:"slot,omitempty"`
	Room             int       `json:"room,omitempty"`
	ParticipantCount int       `json:"participant_count,omitempty"`
}

// ReceiveOutcomeRequest é a entrega de liquidação feita pelo worker.
type ReceiveOutcomeRequest struct {
	DeliveryID   string    `json:"delivery_id"`
	ContentShard string    `json:"content_shard"`
	PostID       string    `json:"post_id"`
	Account      string    `json:"account"`
	Type         string    `json:"type"`
	AmountCents  int64     `json:"amount_cents"`
	SettledAt    time.Time `json:"settled_at"`
}

type HistoryResponse struct {
	Account string      `json:"account"`
	Page    ledger.Page `json:"page"`
}

type PlacedBetResponse struct {
	ContentShard string    `json:"content_shard"`
	PostID       string    `json:"post_id"`
	Slot         int       `json:"slot"`
	Room         int       `json:"room"`
	Direction    string    `json:"direction"`
	StakeCents   int64     `json:"stake_cents"`
	PlacedAt     time.Time `json:"placed_at"`
	Outcome      string    `json:"outcome"`
	PayoutCents  int64     `json:"payout_cents"`
}
