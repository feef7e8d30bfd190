package dto

import "time"

type CreatePostRequest struct {
	CreatorShard   string `json:"creator_shard"`
	CreatorAccount string `json:"creator_account"`
}

type CreatePostResponse struct {
	PostID string `json:"post_id"`
}

type SetPostStatusRequest struct {
	Status string `json:"status"` // ACTIVE | DELETED | BANNED
}

// RegisterBetRequest é a chamada shard-a-shard vinda do shard de conta.
type RegisterBetRequest struct {
	Account      string `json:"account"`
	AccountShard string `json:"account_shard"`
	AmountCents  int64  `json:"amount_cents"`
	Direction    string `json:"direction"` // HOT | NOT
}

type BettingStatusResponse struct {
	Status           string    `json:"status"` // OPEN | CLOSED
	StartedAt        time.Time `json:"started_at"`
	Slot             int       `json:"slot,omitempty"`
	Room             int       `json:"room,omitempty"`
	ParticipantCount int       `json:"participant_count,omitempty"`
}

type BettorsResponse struct {
	PostID   string   `json:"post_id"`
	Accounts []string `json:"accounts"`
}

type PendingPostsResponse struct {
	PostIDs []string `json:"post_ids"`
}
