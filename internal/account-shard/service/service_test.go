package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/hotnot-platform-poc/internal/account-shard/content"
	"github.com/radieske/hotnot-platform-poc/internal/account-shard/repo"
	"github.com/radieske/hotnot-platform-poc/internal/betting"
	"github.com/radieske/hotnot-platform-poc/internal/ledger"
)

// memRepo implementa Repo em memória para os testes do saga.
type memRepo struct {
	accounts map[string]bool
	events   []ledger.Event
	refs     map[string]bool // conta|motivo|ref, espelho do índice único
	bets     map[string]*repo.PlacedBet
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: make(map[string]bool),
		refs:     make(map[string]bool),
		bets:     make(map[string]*repo.PlacedBet),
	}
}

func betKey(shard, post, account string) string {
	return shard + "|" + post + "|" + account
}

func (m *memRepo) CreateAccount(_ context.Context, account string) error {
	m.accounts[account] = true
	return nil
}

func (m *memRepo) AccountExists(_ context.Context, account string) (bool, error) {
	return m.accounts[account], nil
}

func (m *memRepo) AppendEvent(_ context.Context, e ledger.Event) error {
	if e.ExternalRef != "" {
		key := e.Account + "|" + string(e.Reason) + "|" + e.ExternalRef
		if m.refs[key] {
			return repo.ErrDuplicateEvent
		}
		m.refs[key] = true
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memRepo) DebitStake(_ context.Context, account string, stakeCents int64, betRef string, at time.Time) error {
	// checagem de saldo e débito atômicos, como a transação do Postgres
	balance, _ := m.Balance(context.Background(), account)
	if balance < stakeCents {
		return repo.ErrInsufficientFunds
	}
	m.events = append(m.events, ledger.Event{
		Account:     account,
		AmountCents: -stakeCents,
		Reason:      ledger.Stake,
		ExternalRef: betRef,
		CreatedAt:   at,
	})
	return nil
}

func (m *memRepo) Balance(_ context.Context, account string) (int64, error) {
	var events []ledger.Event
	for _, e := range m.events {
		if e.Account == account {
			events = append(events, e)
		}
	}
	return ledger.Fold(events), nil
}

func (m *memRepo) History(_ context.Context, account, _ string, _ int) (ledger.Page, error) {
	var page ledger.Page
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Account == account {
			page.Events = append(page.Events, m.events[i])
		}
	}
	return page, nil
}

func (m *memRepo) InsertPlacedBet(_ context.Context, b *repo.PlacedBet) error {
	m.bets[betKey(b.ContentShard, b.PostID, b.Account)] = b
	return nil
}

func (m *memRepo) GetPlacedBet(_ context.Context, shard, post, account string) (*repo.PlacedBet, error) {
	b, ok := m.bets[betKey(shard, post, account)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) PlacedBetsByAccount(_ context.Context, account string) ([]repo.PlacedBet, error) {
	var out []repo.PlacedBet
	for _, b := range m.bets {
		if b.Account == account {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memRepo) ApplyOutcome(_ context.Context, shard, post, account, outcome string, event *ledger.Event) (bool, error) {
	b, ok := m.bets[betKey(shard, post, account)]
	if !ok {
		return false, repo.ErrNotFound
	}
	if b.Outcome != repo.BetAwaitingResult {
		return false, nil
	}
	b.Outcome = outcome
	if event != nil {
		b.PayoutCents = event.AmountCents
		m.events = append(m.events, *event)
	}
	return true, nil
}

// fakeContent simula o content shard remoto. onCall permite intercalar
// trabalho no meio da chamada remota do saga.
type fakeContent struct {
	status content.BettingStatus
	err    error
	calls  int
	onCall func()
}

func (f *fakeContent) RegisterBet(context.Context, string, string, content.RegisterBetRequest) (content.BettingStatus, error) {
	f.calls++
	if f.onCall != nil {
		f.onCall()
	}
	return f.status, f.err
}

func newTestService(t *testing.T, r Repo, cc ContentClient) *Service {
	t.Helper()
	game, err := betting.NewGame(betting.TokenCents, betting.DefaultParams())
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(zap.NewNop(), "account-a", game, r, cc, clock)
}

func fundedAccount(t *testing.T, svc *Service, account string, cents int64) {
	t.Helper()
	_, err := svc.Deposit(context.Background(), account, cents, "")
	require.NoError(t, err)
}

func TestPlaceBet_Success(t *testing.T) {
	r := newMemRepo()
	cc := &fakeContent{status: content.BettingStatus{Status: "OPEN", Slot: 2, Room: 1, ParticipantCount: 5}}
	svc := newTestService(t, r, cc)
	fundedAccount(t, svc, "alice", 1000)

	res, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "alice", ContentShard: "content-1", PostID: "post-1",
		AmountCents: 200, Direction: betting.Hot,
	})
	require.NoError(t, err)

	assert.True(t, res.Open)
	assert.Equal(t, 2, res.Slot)
	assert.Equal(t, 1, res.Room)

	balance, _ := r.Balance(context.Background(), "alice")
	assert.Equal(t, int64(800), balance)

	b, err := r.GetPlacedBet(context.Background(), "content-1", "post-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, repo.BetAwaitingResult, b.Outcome)
	assert.Equal(t, int64(200), b.StakeCents)
}

func TestPlaceBet_RemoteFailureCompensates(t *testing.T) {
	// o Stake já comprometido volta inteiro via StakeRefund quando a
	// chamada remota falha: o saldo termina igual ao pré-aposta
	r := newMemRepo()
	cc := &fakeContent{err: fmt.Errorf("connection refused")}
	svc := newTestService(t, r, cc)
	fundedAccount(t, svc, "bob", 500)

	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "bob", ContentShard: "content-1", PostID: "post-1",
		AmountCents: 150, Direction: betting.Not,
	})
	assert.ErrorIs(t, err, ErrCreatorCallFailed)

	balance, _ := r.Balance(context.Background(), "bob")
	assert.Equal(t, int64(500), balance)

	// log carrega o par Stake/StakeRefund, nunca é reescrito
	var reasons []ledger.Reason
	for _, e := range r.events {
		reasons = append(reasons, e.Reason)
	}
	assert.Equal(t, []ledger.Reason{ledger.Deposit, ledger.Stake, ledger.StakeRefund}, reasons)

	_, err = r.GetPlacedBet(context.Background(), "content-1", "post-1", "bob")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestPlaceBet_BettingClosedCompensates(t *testing.T) {
	// BettingClosed é rejeição normal de negócio: mesma compensação,
	// mas sem erro para o chamador
	r := newMemRepo()
	cc := &fakeContent{status: content.BettingStatus{Status: "CLOSED"}}
	svc := newTestService(t, r, cc)
	fundedAccount(t, svc, "carol", 300)

	res, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "carol", ContentShard: "content-1", PostID: "post-velho",
		AmountCents: 100, Direction: betting.Hot,
	})
	require.NoError(t, err)
	assert.False(t, res.Open)

	balance, _ := r.Balance(context.Background(), "carol")
	assert.Equal(t, int64(300), balance)
}

func TestPlaceBet_AlreadyParticipated(t *testing.T) {
	// a segunda aposta no mesmo post é recusada antes de qualquer
	// mutação no ledger: apostar é ação única por post, não por slot
	r := newMemRepo()
	cc := &fakeContent{status: content.BettingStatus{Status: "OPEN", Slot: 1, Room: 1, ParticipantCount: 1}}
	svc := newTestService(t, r, cc)
	fundedAccount(t, svc, "dave", 1000)

	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "dave", ContentShard: "content-1", PostID: "post-1",
		AmountCents: 100, Direction: betting.Hot,
	})
	require.NoError(t, err)

	eventsBefore := len(r.events)
	_, err = svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "dave", ContentShard: "content-1", PostID: "post-1",
		AmountCents: 50, Direction: betting.Not,
	})
	assert.ErrorIs(t, err, ErrAlreadyParticipated)
	assert.Len(t, r.events, eventsBefore)
	assert.Equal(t, 1, cc.calls)
}

func TestPlaceBet_InsufficientBalance(t *testing.T) {
	r := newMemRepo()
	cc := &fakeContent{}
	svc := newTestService(t, r, cc)
	fundedAccount(t, svc, "eve", 50)

	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "eve", ContentShard: "content-1", PostID: "post-1",
		AmountCents: 100, Direction: betting.Hot,
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, cc.calls)

	balance, _ := r.Balance(context.Background(), "eve")
	assert.Equal(t, int64(50), balance)
}

func TestPlaceBet_ConcurrentStakesCannotOverdraw(t *testing.T) {
	// duas apostas de 100 numa conta com 100: a segunda dispara enquanto
	// a primeira ainda aguarda o registro remoto. Como checagem de saldo
	// e débito são uma única operação do repositório, a segunda vê o
	// saldo já debitado e é recusada; o fold nunca fica negativo.
	r := newMemRepo()
	cc := &fakeContent{status: content.BettingStatus{Status: "OPEN", Slot: 1, Room: 1}}
	svc := newTestService(t, r, cc)
	fundedAccount(t, svc, "alice", 100)

	var second error
	cc.onCall = func() {
		if cc.calls > 1 {
			return
		}
		_, second = svc.PlaceBet(context.Background(), PlaceBetInput{
			Account: "alice", ContentShard: "content-1", PostID: "post-2",
			AmountCents: 100, Direction: betting.Not,
		})
	}

	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "alice", ContentShard: "content-1", PostID: "post-1",
		AmountCents: 100, Direction: betting.Hot,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, second, ErrInsufficientBalance)

	balance, _ := r.Balance(context.Background(), "alice")
	assert.Equal(t, int64(0), balance)
}

func TestPlaceBet_AccountNotRegistered(t *testing.T) {
	r := newMemRepo()
	svc := newTestService(t, r, &fakeContent{})

	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: "fantasma", ContentShard: "content-1", PostID: "post-1",
		AmountCents: 100, Direction: betting.Hot,
	})
	assert.ErrorIs(t, err, ErrAccountNotRegistered)
}

func placeWinningBet(t *testing.T, svc *Service, r *memRepo, account string) {
	t.Helper()
	fundedAccount(t, svc, account, 1000)
	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		Account: account, ContentShard: "content-1", PostID: "post-1",
		AmountCents: 200, Direction: betting.Hot,
	})
	require.NoError(t, err)
}

func TestReceiveOutcome_PayoutIdempotent(t *testing.T) {
	r := newMemRepo()
	cc := &fakeContent{status: content.BettingStatus{Status: "OPEN", Slot: 1, Room: 1}}
	svc := newTestService(t, r, cc)
	placeWinningBet(t, svc, r, "alice")

	delivery := OutcomeDeliveryInput{
		DeliveryID:   "post-1:1:1:alice:PAYOUT",
		ContentShard: "content-1",
		PostID:       "post-1",
		Account:      "alice",
		Type:         "PAYOUT",
		AmountCents:  360, // 200 * 1.8
	}

	require.NoError(t, svc.ReceiveOutcome(context.Background(), delivery))
	balance, _ := r.Balance(context.Background(), "alice")
	assert.Equal(t, int64(1160), balance)

	b, _ := r.GetPlacedBet(context.Background(), "content-1", "post-1", "alice")
	assert.Equal(t, repo.BetWon, b.Outcome)
	assert.Equal(t, int64(360), b.PayoutCents)

	// reentrega at-least-once: saldo muda exatamente uma vez
	require.NoError(t, svc.ReceiveOutcome(context.Background(), delivery))
	balance, _ = r.Balance(context.Background(), "alice")
	assert.Equal(t, int64(1160), balance)
}

func TestReceiveOutcome_LossResolvesWithoutCredit(t *testing.T) {
	r := newMemRepo()
	cc := &fakeContent{status: content.BettingStatus{Status: "OPEN", Slot: 1, Room: 1}}
	svc := newTestService(t, r, cc)
	placeWinningBet(t, svc, r, "bob")

	require.NoError(t, svc.ReceiveOutcome(context.Background(), OutcomeDeliveryInput{
		DeliveryID: "post-1:1:1:bob:LOSS", ContentShard: "content-1",
		PostID: "post-1", Account: "bob", Type: "LOSS",
	}))

	// stake minoritária fica retida: nada volta
	balance, _ := r.Balance(context.Background(), "bob")
	assert.Equal(t, int64(800), balance)

	b, _ := r.GetPlacedBet(context.Background(), "content-1", "post-1", "bob")
	assert.Equal(t, repo.BetLost, b.Outcome)
}

func TestReceiveOutcome_DrawRefund(t *testing.T) {
	r := newMemRepo()
	cc := &fakeContent{status: content.BettingStatus{Status: "OPEN", Slot: 1, Room: 1}}
	svc := newTestService(t, r, cc)
	placeWinningBet(t, svc, r, "carol")

	require.NoError(t, svc.ReceiveOutcome(context.Background(), OutcomeDeliveryInput{
		DeliveryID: "post-1:1:1:carol:DRAW_REFUND", ContentShard: "content-1",
		PostID: "post-1", Account: "carol", Type: "DRAW_REFUND", AmountCents: 200,
	}))

	balance, _ := r.Balance(context.Background(), "carol")
	assert.Equal(t, int64(1000), balance) // devolução 1.0x

	b, _ := r.GetPlacedBet(context.Background(), "content-1", "post-1", "carol")
	assert.Equal(t, repo.BetDraw, b.Outcome)
}

func TestReceiveOutcome_CommissionIdempotent(t *testing.T) {
	// comissão não tem PlacedBetRecord; a idempotência vem do
	// external_ref único no ledger
	r := newMemRepo()
	svc := newTestService(t, r, &fakeContent{})

	delivery := OutcomeDeliveryInput{
		DeliveryID: "post-1:1:1:creator:COMMISSION", ContentShard: "content-1",
		PostID: "post-1", Account: "creator", Type: "COMMISSION", AmountCents: 16,
	}
	require.NoError(t, svc.ReceiveOutcome(context.Background(), delivery))
	require.NoError(t, svc.ReceiveOutcome(context.Background(), delivery))

	balance, _ := r.Balance(context.Background(), "creator")
	assert.Equal(t, int64(16), balance)
}

func TestReceiveOutcome_UnknownBet(t *testing.T) {
	r := newMemRepo()
	svc := newTestService(t, r, &fakeContent{})

	err := svc.ReceiveOutcome(context.Background(), OutcomeDeliveryInput{
		DeliveryID: "x", ContentShard: "content-1", PostID: "nope",
		Account: "alice", Type: "PAYOUT", AmountCents: 10,
	})
	assert.True(t, errors.Is(err, repo.ErrNotFound))
}

func TestBalance_UnregisteredAccount(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &fakeContent{})
	_, err := svc.Balance(context.Background(), "ninguem")
	assert.ErrorIs(t, err, ErrAccountNotRegistered)
}
