package repo

import "time"

// Status de um post. DELETED e BANNED fecham a aposta; BANNED é decidido
// por moderação, fora deste serviço.
const (
	PostActive  = "ACTIVE"
	PostDeleted = "DELETED"
	PostBanned  = "BANNED"
)

// Post é o agregado de conteúdo deste shard. O criador mora num shard de
// conta; é pra lá que a comissão da sala é enviada.
type Post struct {
	ID             string
	CreatorShard   string
	CreatorAccount string
	CreatedAt      time.Time
	Status         string
}

// RoomBet é a participação persistida em (post, slot, sala).
type RoomBet struct {
	Account     string
	Shard       string
	AmountCents int64
	Direction   string // HOT | NOT
	PlacedAt    time.Time
}

// RoomOccupancy descreve a sala de maior número de um slot.
type RoomOccupancy struct {
	RoomNo       int
	Participants int
	PotCents     int64
}
