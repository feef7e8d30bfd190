package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/betting"
	"github.com/radieske/hotnot-platform-poc/internal/content-shard/repo"
	"github.com/radieske/hotnot-platform-poc/internal/shared/metrics"
	"github.com/radieske/hotnot-platform-poc/pkg/contracts/events"
)

var ErrPostNotFound = repo.ErrPostNotFound

// Repo é o contrato dos armazéns duráveis do shard (implementado por
// repo.Postgres; os testes usam uma versão em memória).
type Repo interface {
	CreatePost(ctx context.Context, post *repo.Post) error
	GetPost(ctx context.Context, id string) (*repo.Post, error)
	SetPostStatus(ctx context.Context, id, status string) error
	RegisterBet(ctx context.Context, postID string, slot int, bet repo.RoomBet) (roomNo, participants int, potCents int64, err error)
	HighestRoom(ctx context.Context, postID string, slot int) (repo.RoomOccupancy, error)
	PendingSlots(ctx context.Context, postID string) ([]int, error)
	PostsWithPendingSlots(ctx context.Context, limit int) ([]string, error)
	RoomsForSlot(ctx context.Context, postID string, slot int) ([]betting.Room, error)
	MarkRoomOutcome(ctx context.Context, postID string, slot, roomNo int, outcome betting.Outcome) error
	ClearPendingSlot(ctx context.Context, postID string, slot int) error
	Bettors(ctx context.Context, postID string) ([]string, error)
}

// OutcomePublisher publica as entregas de liquidação no barramento.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, d events.OutcomeDelivery) error
}

// LiveFeed recebe a atividade de apostas para o feed ao vivo (pub/sub).
// Melhor esforço: falha aqui nunca derruba o registro da aposta.
type LiveFeed interface {
	PublishBetRegistered(ctx context.Context, e events.BetRegistered)
}

// StatusCache é o cache read-through do status de aposta de um post.
type StatusCache interface {
	Get(ctx context.Context, postID string) (*BettingStatus, bool)
	Set(ctx context.Context, postID string, st BettingStatus)
	Invalidate(ctx context.Context, postID string)
}

// BettingStatus é a resposta de register_bet e da consulta de status.
// Open=false corresponde a BettingClosed: rejeição normal de negócio,
// não é falha.
type BettingStatus struct {
	Open             bool      `json:"open"`
	StartedAt        time.Time `json:"started_at"`
	Slot             int       `json:"slot,omitempty"`
	Room             int       `json:"room,omitempty"`
	ParticipantCount int       `json:"participant_count,omitempty"`
}

// RegisterBetInput é a aposta encaminhada pelo shard de conta. A unicidade
// "uma aposta por conta por post" já foi garantida lá; este shard confia
// no chamador.
type RegisterBetInput struct {
	PostID      string
	Account     string
	Shard       string
	AmountCents int64
	Direction   betting.Direction
}

// Service concentra as operações do content shard: registro de apostas,
// tabulação/sweep e consultas.
type Service struct {
	log     *zap.Logger
	shardID string
	params  betting.Params
	game    betting.StakeableGame
	repo    Repo
	publ    OutcomePublisher
	feed    LiveFeed
	cache   StatusCache
	clock   clockwork.Clock
}

func New(log *zap.Logger, shardID string, params betting.Params, game betting.StakeableGame,
	r Repo, publ OutcomePublisher, feed LiveFeed, cache StatusCache, clock clockwork.Clock) *Service {
	return &Service{
		log: log, shardID: shardID, params: params, game: game,
		repo: r, publ: publ, feed: feed, cache: cache, clock: clock,
	}
}

// CreatePost cria um post ativo pertencente a uma conta de outro shard.
func (s *Service) CreatePost(ctx context.Context, creatorShard, creatorAccount string) (string, error) {
	post := &repo.Post{
		ID:             uuid.NewString(),
		CreatorShard:   creatorShard,
		CreatorAccount: creatorAccount,
		CreatedAt:      s.clock.Now().UTC(),
		Status:         repo.PostActive,
	}
	if err := s.repo.CreatePost(ctx, post); err != nil {
		return "", err
	}
	return post.ID, nil
}

// SetPostStatus aplica delete/ban. Slots pendentes continuam no conjunto:
// post deletado deixa o sweep parado enquanto durar o status; banimento
// só fecha apostas novas, o que já foi apostado liquida normalmente.
func (s *Service) SetPostStatus(ctx context.Context, postID, status string) error {
	if status != repo.PostDeleted && status != repo.PostBanned && status != repo.PostActive {
		return fmt.Errorf("invalid post status %q", status)
	}
	if err := s.repo.SetPostStatus(ctx, postID, status); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, postID)
	}
	return nil
}

// RegisterBet registra a aposta no slot corrente do post. Janela fechada,
// post banido ou post além da vida útil respondem BettingClosed (valor,
// não erro); post inexistente ou deletado é ErrPostNotFound.
func (s *Service) RegisterBet(ctx context.Context, in RegisterBetInput) (BettingStatus, error) {
	post, err := s.repo.GetPost(ctx, in.PostID)
	if err != nil {
		return BettingStatus{}, err
	}
	if post.Status == repo.PostDeleted {
		return BettingStatus{}, ErrPostNotFound
	}

	if err := s.game.ValidateStake(in.AmountCents); err != nil {
		return BettingStatus{}, err
	}

	now := s.clock.Now().UTC()
	slot, err := betting.Window(s.params, post.CreatedAt, now)
	if err != nil || post.Status == repo.PostBanned {
		return BettingStatus{Open: false, StartedAt: post.CreatedAt}, nil
	}

	roomNo, participants, pot, err := s.repo.RegisterBet(ctx, in.PostID, slot, repo.RoomBet{
		Account:     in.Account,
		Shard:       in.Shard,
		AmountCents: in.AmountCents,
		Direction:   string(in.Direction),
		PlacedAt:    now,
	})
	if err != nil {
		return BettingStatus{}, err
	}

	metrics.BetsRegistered.Inc()
	if s.cache != nil {
		s.cache.Invalidate(ctx, in.PostID)
	}
	if s.feed != nil {
		s.feed.PublishBetRegistered(ctx, events.BetRegistered{
			PostID:       in.PostID,
			Slot:         slot,
			Room:         roomNo,
			Direction:    string(in.Direction),
			StakeCents:   in.AmountCents,
			PotCents:     pot,
			Participants: participants,
			TsUnixMs:     now.UnixMilli(),
		})
	}

	return BettingStatus{
		Open:             true,
		StartedAt:        post.CreatedAt,
		Slot:             slot,
		Room:             roomNo,
		ParticipantCount: participants,
	}, nil
}

// GetBettingStatus responde a posição corrente da janela do post, com
// cache read-through.
func (s *Service) GetBettingStatus(ctx context.Context, postID string) (BettingStatus, error) {
	if s.cache != nil {
		if st, ok := s.cache.Get(ctx, postID); ok {
			return *st, nil
		}
	}

	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return BettingStatus{}, err
	}
	if post.Status == repo.PostDeleted {
		return BettingStatus{}, ErrPostNotFound
	}

	st := BettingStatus{StartedAt: post.CreatedAt}
	slot, err := betting.Window(s.params, post.CreatedAt, s.clock.Now().UTC())
	if err == nil && post.Status == repo.PostActive {
		occ, err := s.repo.HighestRoom(ctx, postID, slot)
		if err != nil {
			return BettingStatus{}, err
		}
		room, _ := betting.ResolveRoom(s.params, occ.RoomNo, occ.Participants)
		st.Open = true
		st.Slot = slot
		st.Room = room
		if room == occ.RoomNo {
			st.ParticipantCount = occ.Participants
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, postID, st)
	}
	return st, nil
}

// Bettors responde o índice reverso do post.
func (s *Service) Bettors(ctx context.Context, postID string) ([]string, error) {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.Bettors(ctx, postID)
}

// PostsWithPendingSlots lista posts com liquidação pendente (scheduler).
func (s *Service) PostsWithPendingSlots(ctx context.Context, limit int) ([]string, error) {
	return s.repo.PostsWithPendingSlots(ctx, limit)
}

// SweepPendingSlots tabula todas as salas dos slots já esgotados do post.
// Para cada sala ONGOING: publica primeiro todas as entregas no barramento
// e só então grava o desfecho: a escrita menos reversível fica por
// último. Reenvio após falha parcial é absorvido pela idempotência do
// shard de conta. Liquidação nunca propaga erro: sala irresolúvel é
// pulada e fica pendente para um sweep futuro.
func (s *Service) SweepPendingSlots(ctx context.Context, postID string) error {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	// post deletado não é resolvível: as salas ficam pendentes
	if post.Status == repo.PostDeleted {
		return nil
	}

	slots, err := s.repo.PendingSlots(ctx, postID)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	for _, slot := range slots {
		if !betting.SlotElapsed(s.params, post.CreatedAt, now, slot) {
			continue
		}
		s.sweepSlot(ctx, post, slot, now)
	}
	return nil
}

func (s *Service) sweepSlot(ctx context.Context, post *repo.Post, slot int, now time.Time) {
	rooms, err := s.repo.RoomsForSlot(ctx, post.ID, slot)
	if err != nil {
		s.log.Warn("sweep: load rooms", zap.String("postId", post.ID), zap.Int("slot", slot), zap.Error(err))
		return
	}

	allResolved := true
	for _, room := range rooms {
		if room.Outcome != betting.Ongoing {
			continue
		}
		if err := s.settleRoom(ctx, post, room, now); err != nil {
			s.log.Warn("sweep: room left pending",
				zap.String("postId", post.ID), zap.Int("slot", slot),
				zap.Int("room", room.RoomNo), zap.Error(err))
			allResolved = false
		}
	}

	if allResolved {
		if err := s.repo.ClearPendingSlot(ctx, post.ID, slot); err != nil {
			s.log.Warn("sweep: clear pending slot", zap.String("postId", post.ID), zap.Int("slot", slot), zap.Error(err))
		}
	}
}

func (s *Service) settleRoom(ctx context.Context, post *repo.Post, room betting.Room, now time.Time) error {
	settlement := betting.Tabulate(s.params, s.game, room, post.CreatorShard, post.CreatorAccount)

	for _, e := range settlement.Entries {
		d := events.OutcomeDelivery{
			DeliveryID:   deliveryID(post.ID, room.Slot, room.RoomNo, e.Account, e.Type),
			ContentShard: s.shardID,
			PostID:       post.ID,
			Slot:         room.Slot,
			Room:         room.RoomNo,
			TargetShard:  e.Shard,
			Account:      e.Account,
			Type:         string(e.Type),
			AmountCents:  e.AmountCents,
			RoomOutcome:  string(settlement.Outcome),
			SettledAt:    now,
		}
		if err := s.publ.PublishOutcome(ctx, d); err != nil {
			return fmt.Errorf("publish outcome: %w", err)
		}
	}

	err := s.repo.MarkRoomOutcome(ctx, post.ID, room.Slot, room.RoomNo, settlement.Outcome)
	if errors.Is(err, repo.ErrRoomResolved) {
		// outro sweep chegou primeiro; as entregas duplicadas são no-op lá
		return nil
	}
	if err != nil {
		return err
	}

	metrics.RoomsTabulated.WithLabelValues(outcomeLabel(settlement.Outcome)).Inc()
	return nil
}

// deliveryID é estável entre reenvios do mesmo lançamento: é ele que o
// shard de conta usa como external_ref idempotente da comissão.
func deliveryID(postID string, slot, roomNo int, account string, t betting.EntryType) string {
	return fmt.Sprintf("%s:%d:%d:%s:%s", postID, slot, roomNo, account, t)
}

func outcomeLabel(o betting.Outcome) string {
	switch o {
	case betting.HotWon:
		return "hot_won"
	case betting.NotWon:
		return "not_won"
	default:
		return "draw"
	}
}
