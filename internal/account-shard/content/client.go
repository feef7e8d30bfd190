package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrPostNotFound = errors.New("post not found on content shard")
	ErrUnknownShard = errors.New("unknown content shard")
)

// RegisterBetRequest é o corpo da chamada shard-a-shard de registro.
type RegisterBetRequest struct {
	Account      string `json:"account"`
	AccountShard string `json:"account_shard"`
	AmountCents  int64  `json:"amount_cents"`
	Direction    string `json:"direction"`
}

// BettingStatus é a resposta do content shard.
type BettingStatus struct {
	Status           string    `json:"status"` // OPEN | CLOSED
	StartedAt        time.Time `json:"started_at"`
	Slot             int       `json:"slot"`
	Room             int       `json:"room"`
	ParticipantCount int       `json:"participant_count"`
}

func (b BettingStatus) Open() bool { return b.Status == "OPEN" }

// Client fala com os content shards conhecidos. Qualquer falha de
// transporte aqui dispara a compensação do saga no chamador.
type Client struct {
	shards map[string]string // shardID -> URL base
	http   *http.Client
}

func New(shards map[string]string) *Client {
	return &Client{
		shards: shards,
		http:   &http.Client{Timeout: 2 * time.Second},
	}
}

// RegisterBet chama register_bet no shard dono do post.
func (c *Client) RegisterBet(ctx context.Context, shardID, postID string, req RegisterBetRequest) (BettingStatus, error) {
	base, ok := c.shards[shardID]
	if !ok {
		return BettingStatus{}, fmt.Errorf("%w: %s", ErrUnknownShard, shardID)
	}

	body, _ := json.Marshal(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/v1/posts/"+postID+"/bets", bytes.NewReader(body))
	if err != nil {
		return BettingStatus{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return BettingStatus{}, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return BettingStatus{}, ErrPostNotFound
	case res.StatusCode >= 300:
		return BettingStatus{}, fmt.Errorf("register bet http %d", res.StatusCode)
	}

	var out BettingStatus
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return BettingStatus{}, err
	}
	return out, nil
}
