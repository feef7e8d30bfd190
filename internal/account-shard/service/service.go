package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/account-shard/content"
	"github.com/radieske/hotnot-platform-poc/internal/account-shard/repo"
	"github.com/radieske/hotnot-platform-poc/internal/betting"
	"github.com/radieske/hotnot-platform-poc/internal/ledger"
	"github.com/radieske/hotnot-platform-poc/internal/shared/metrics"
)

// Taxonomia de erros do fluxo de aposta. Falhas locais de pré-condição
// nunca mutam estado; falha da chamada remota só aparece depois do Stake
// e por isso sempre vem acompanhada do StakeRefund compensatório.
var (
	ErrAccountNotRegistered = errors.New("account principal not set on this shard")
	ErrAlreadyParticipated  = errors.New("account already bet on this post")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrPostNotFound         = errors.New("post not found")
	ErrCreatorCallFailed    = errors.New("post creator shard call failed")
	ErrBetNotFound          = repo.ErrNotFound
)

// Repo é o contrato do ledger e do armazém de PlacedBetRecord
// (implementado por repo.Postgres; testes usam versão em memória).
type Repo interface {
	CreateAccount(ctx context.Context, account string) error
	AccountExists(ctx context.Context, account string) (bool, error)
	AppendEvent(ctx context.Context, e ledger.Event) error
	DebitStake(ctx context.Context, account string, stakeCents int64, betRef string, at time.Time) error
	Balance(ctx context.Context, account string) (int64, error)
	History(ctx context.Context, account, cursor string, limit int) (ledger.Page, error)
	InsertPlacedBet(ctx context.Context, b *repo.PlacedBet) error
	GetPlacedBet(ctx context.Context, contentShard, postID, account string) (*repo.PlacedBet, error)
	PlacedBetsByAccount(ctx context.Context, account string) ([]repo.PlacedBet, error)
	ApplyOutcome(ctx context.Context, contentShard, postID, account, outcome string, event *ledger.Event) (bool, error)
}

// ContentClient é a chamada remota register_bet no shard do post.
type ContentClient interface {
	RegisterBet(ctx context.Context, shardID, postID string, req content.RegisterBetRequest) (content.BettingStatus, error)
}

// PlaceBetInput é a intenção de aposta já autenticada pelo handler.
type PlaceBetInput struct {
	Account      string
	ContentShard string
	PostID       string
	AmountCents  int64
	Direction    betting.Direction
}

// BetResult é o desfecho do saga visto pelo chamador. Open=false é a
// rejeição normal BettingClosed: a stake já voltou via StakeRefund.
type BetResult struct {
	Open             bool
	StartedAt        time.Time
	Slot             int
	Room             int
	ParticipantCount int
}

// OutcomeDeliveryInput é uma entrega de liquidação vinda do worker.
type OutcomeDeliveryInput struct {
	DeliveryID   string
	ContentShard string
	PostID       string
	Account      string
	Type         string // PAYOUT | DRAW_REFUND | LOSS | COMMISSION
	AmountCents  int64
	SettledAt    time.Time
}

// Service concentra as operações do shard de conta: o saga de aposta,
// o recebimento idempotente de resultados e as consultas de ledger.
type Service struct {
	log     *zap.Logger
	shardID string
	game    betting.StakeableGame
	repo    Repo
	content ContentClient
	clock   clockwork.Clock
}

func New(log *zap.Logger, shardID string, game betting.StakeableGame, r Repo, cc ContentClient, clock clockwork.Clock) *Service {
	return &Service{log: log, shardID: shardID, game: game, repo: r, content: cc, clock: clock}
}

// RegisterAccount registra o principal da conta neste shard.
func (s *Service) RegisterAccount(ctx context.Context, account string) error {
	return s.repo.CreateAccount(ctx, account)
}

// Deposit credita saldo na conta, registrando a conta se preciso.
func (s *Service) Deposit(ctx context.Context, account string, amountCents int64, externalRef string) (int64, error) {
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return 0, err
	}
	err := s.repo.AppendEvent(ctx, ledger.Event{
		Account:     account,
		AmountCents: amountCents,
		Reason:      ledger.Deposit,
		ExternalRef: externalRef,
		CreatedAt:   s.clock.Now().UTC(),
	})
	if err != nil && !errors.Is(err, repo.ErrDuplicateEvent) {
		return 0, err
	}
	return s.repo.Balance(ctx, account)
}

// PlaceBet executa o saga de aposta em dois passos.
//
// O Stake é irrevogável no instante em que é gravado (commit point 1);
// não existe rollback distribuído. A correção depende inteiramente do
// StakeRefund disparar sempre que o registro remoto não confirmar, seja
// falha de transporte, seja BettingClosed. Saga travado com a chamada
// remota nunca resolvida fica sem reversão automática; a reconciliação é
// manual, a partir do log de erro com o betRef.
func (s *Service) PlaceBet(ctx context.Context, in PlaceBetInput) (BetResult, error) {
	// 1) pré-condições locais: nada aqui muta estado
	exists, err := s.repo.AccountExists(ctx, in.Account)
	if err != nil {
		return BetResult{}, err
	}
	if !exists {
		return BetResult{}, ErrAccountNotRegistered
	}

	if _, err := s.repo.GetPlacedBet(ctx, in.ContentShard, in.PostID, in.Account); err == nil {
		metrics.BetsPlaced.WithLabelValues("refused").Inc()
		return BetResult{}, ErrAlreadyParticipated
	} else if !errors.Is(err, repo.ErrNotFound) {
		return BetResult{}, err
	}

	if err := s.game.ValidateStake(in.AmountCents); err != nil {
		return BetResult{}, err
	}

	// 2) Stake: débito otimista antes da confirmação remota. A checagem
	// de saldo e o insert do STAKE são uma transação só, com lock na
	// linha da conta; apostas simultâneas da mesma conta serializam aqui
	// e nunca levam o fold abaixo de zero.
	betRef := "bet:" + uuid.NewString()
	now := s.clock.Now().UTC()
	if err := s.repo.DebitStake(ctx, in.Account, in.AmountCents, betRef, now); err != nil {
		if errors.Is(err, repo.ErrInsufficientFunds) {
			metrics.BetsPlaced.WithLabelValues("refused").Inc()
			return BetResult{}, ErrInsufficientBalance
		}
		return BetResult{}, err
	}

	// 3) registro remoto no shard do post
	st, err := s.content.RegisterBet(ctx, in.ContentShard, in.PostID, content.RegisterBetRequest{
		Account:      in.Account,
		AccountShard: s.shardID,
		AmountCents:  in.AmountCents,
		Direction:    string(in.Direction),
	})

	// 4) compensação: qualquer não-confirmação devolve a stake
	if err != nil {
		s.refundStake(ctx, in.Account, in.AmountCents, betRef)
		if errors.Is(err, content.ErrPostNotFound) {
			return BetResult{}, ErrPostNotFound
		}
		s.log.Warn("register bet remote call failed", zap.String("postId", in.PostID), zap.Error(err))
		return BetResult{}, fmt.Errorf("%w: %v", ErrCreatorCallFailed, err)
	}
	if !st.Open() {
		s.refundStake(ctx, in.Account, in.AmountCents, betRef)
		metrics.BetsPlaced.WithLabelValues("closed").Inc()
		return BetResult{Open: false, StartedAt: st.StartedAt}, nil
	}

	// 5) confirmado: persiste o registro local aguardando resultado
	if err := s.repo.InsertPlacedBet(ctx, &repo.PlacedBet{
		ContentShard: in.ContentShard,
		PostID:       in.PostID,
		Account:      in.Account,
		Slot:         st.Slot,
		RoomNo:       st.Room,
		Direction:    string(in.Direction),
		StakeCents:   in.AmountCents,
		PlacedAt:     now,
		Outcome:      repo.BetAwaitingResult,
	}); err != nil {
		return BetResult{}, err
	}

	metrics.BetsPlaced.WithLabelValues("open").Inc()
	return BetResult{
		Open:             true,
		StartedAt:        st.StartedAt,
		Slot:             st.Slot,
		Room:             st.Room,
		ParticipantCount: st.ParticipantCount,
	}, nil
}

// refundStake é a transação compensatória do saga: credita de volta o
// mesmo valor, amarrado ao mesmo betRef do Stake.
func (s *Service) refundStake(ctx context.Context, account string, amountCents int64, betRef string) {
	err := s.repo.AppendEvent(ctx, ledger.Event{
		Account:     account,
		AmountCents: amountCents,
		Reason:      ledger.StakeRefund,
		ExternalRef: betRef,
		CreatedAt:   s.clock.Now().UTC(),
	})
	if err != nil {
		// sem o refund o débito fica pendurado; só um sweep de
		// reconciliação externo resolveria; registra alto e segue
		s.log.Error("stake refund failed", zap.String("account", account),
			zap.String("betRef", betRef), zap.Error(err))
		return
	}
	metrics.StakeRefunds.Inc()
	metrics.BetsPlaced.WithLabelValues("refunded").Inc()
}

// ReceiveOutcome aplica uma entrega de liquidação. Idempotente: o
// PlacedBetRecord já resolvido (ou a comissão com external_ref já visto)
// faz da entrega um no-op, então o at-least-once do barramento muda o
// saldo exatamente uma vez.
func (s *Service) ReceiveOutcome(ctx context.Context, in OutcomeDeliveryInput) error {
	now := s.clock.Now().UTC()

	if in.Type == "COMMISSION" {
		if err := s.repo.CreateAccount(ctx, in.Account); err != nil {
			return err
		}
		err := s.repo.AppendEvent(ctx, ledger.Event{
			Account:     in.Account,
			AmountCents: in.AmountCents,
			Reason:      ledger.Commission,
			ExternalRef: in.DeliveryID,
			CreatedAt:   now,
		})
		if errors.Is(err, repo.ErrDuplicateEvent) {
			return nil
		}
		return err
	}

	var outcome string
	var event *ledger.Event
	switch in.Type {
	case "PAYOUT":
		outcome = repo.BetWon
	case "DRAW_REFUND":
		outcome = repo.BetDraw
	case "LOSS":
		outcome = repo.BetLost
	default:
		return fmt.Errorf("unknown outcome delivery type %q", in.Type)
	}
	if in.AmountCents > 0 {
		event = &ledger.Event{
			Account:     in.Account,
			AmountCents: in.AmountCents,
			Reason:      ledger.OutcomePayout,
			ExternalRef: in.DeliveryID,
			CreatedAt:   now,
		}
	}

	applied, err := s.repo.ApplyOutcome(ctx, in.ContentShard, in.PostID, in.Account, outcome, event)
	if err != nil {
		return err
	}
	if !applied {
		s.log.Debug("duplicate outcome delivery ignored", zap.String("deliveryId", in.DeliveryID))
	}
	return nil
}

// Balance responde o fold corrente do ledger da conta.
func (s *Service) Balance(ctx context.Context, account string) (int64, error) {
	exists, err := s.repo.AccountExists(ctx, account)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrAccountNotRegistered
	}
	return s.repo.Balance(ctx, account)
}

// History responde uma página do histórico em ordem inversa.
func (s *Service) History(ctx context.Context, account, cursor string, limit int) (ledger.Page, error) {
	return s.repo.History(ctx, account, cursor, limit)
}

// PlacedBet responde o registro local de aposta da conta num post.
func (s *Service) PlacedBet(ctx context.Context, contentShard, postID, account string) (*repo.PlacedBet, error) {
	return s.repo.GetPlacedBet(ctx, contentShard, postID, account)
}

// PlacedBets lista os registros de aposta da conta.
func (s *Service) PlacedBets(ctx context.Context, account string) ([]repo.PlacedBet, error) {
	return s.repo.PlacedBetsByAccount(ctx, account)
}
