package betting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, p Params) StakeableGame {
	t.Helper()
	g, err := NewGame(TokenCents, p)
	require.NoError(t, err)
	return g
}

func entryFor(s Settlement, account string) (SettlementEntry, bool) {
	for _, e := range s.Entries {
		if e.Account == account && e.Type != EntryCommission {
			return e, true
		}
	}
	return SettlementEntry{}, false
}

func TestTabulate_MajorityByHeadcount(t *testing.T) {
	// Bob(Hot,50) + Dan(Hot,10) contra Charlie(Not,100): Hot vence por 2x1
	// mesmo com o Not carregando mais dinheiro no pote.
	p := DefaultParams()
	room := Room{
		PostID: "post-1", Slot: 3, RoomNo: 1, PotCents: 160, Outcome: Ongoing,
		Bets: []Bet{
			{Account: "bob", Shard: "acc-a", AmountCents: 50, Direction: Hot},
			{Account: "charlie", Shard: "acc-b", AmountCents: 100, Direction: Not},
			{Account: "dan", Shard: "acc-a", AmountCents: 10, Direction: Hot},
		},
	}

	s := Tabulate(p, newTestGame(t, p), room, "acc-a", "creator")

	assert.Equal(t, HotWon, s.Outcome)
	assert.Equal(t, int64(16), s.CommissionCents) // round(0.10 * 160)

	bob, ok := entryFor(s, "bob")
	require.True(t, ok)
	assert.Equal(t, EntryPayout, bob.Type)
	assert.Equal(t, int64(90), bob.AmountCents) // 50 * 1.8

	dan, ok := entryFor(s, "dan")
	require.True(t, ok)
	assert.Equal(t, int64(18), dan.AmountCents) // 10 * 1.8

	charlie, ok := entryFor(s, "charlie")
	require.True(t, ok)
	assert.Equal(t, EntryLoss, charlie.Type)
	assert.Zero(t, charlie.AmountCents)

	// comissão endereçada ao criador, no shard dele
	last := s.Entries[len(s.Entries)-1]
	assert.Equal(t, EntryCommission, last.Type)
	assert.Equal(t, "creator", last.Account)
	assert.Equal(t, "acc-a", last.Shard)
	assert.Equal(t, int64(16), last.AmountCents)
}

func TestTabulate_TieIsDraw(t *testing.T) {
	p := DefaultParams()
	room := Room{
		PostID: "post-2", Slot: 1, RoomNo: 1, PotCents: 150, Outcome: Ongoing,
		Bets: []Bet{
			{Account: "alice", Shard: "acc-a", AmountCents: 50, Direction: Hot},
			{Account: "bob", Shard: "acc-b", AmountCents: 100, Direction: Not},
		},
	}

	s := Tabulate(p, newTestGame(t, p), room, "acc-a", "creator")

	assert.Equal(t, Draw, s.Outcome)

	alice, _ := entryFor(s, "alice")
	assert.Equal(t, EntryDrawRefund, alice.Type)
	assert.Equal(t, int64(50), alice.AmountCents) // devolução 1.0x

	bob, _ := entryFor(s, "bob")
	assert.Equal(t, EntryDrawRefund, bob.Type)
	assert.Equal(t, int64(100), bob.AmountCents)

	// com DrawPaysCommission ligado o criador recebe mesmo no empate
	assert.Equal(t, int64(15), s.CommissionCents)
}

func TestTabulate_DrawCommissionConfigurable(t *testing.T) {
	p := DefaultParams()
	p.DrawPaysCommission = false
	room := Room{
		PostID: "post-3", Slot: 1, RoomNo: 1, PotCents: 200, Outcome: Ongoing,
		Bets: []Bet{
			{Account: "alice", Shard: "acc-a", AmountCents: 100, Direction: Hot},
			{Account: "bob", Shard: "acc-b", AmountCents: 100, Direction: Not},
		},
	}

	s := Tabulate(p, newTestGame(t, p), room, "acc-a", "creator")

	assert.Equal(t, Draw, s.Outcome)
	assert.Zero(t, s.CommissionCents)
	for _, e := range s.Entries {
		assert.NotEqual(t, EntryCommission, e.Type)
	}
}

func TestTabulate_Accounting(t *testing.T) {
	// O multiplicador fixo é financiado pelas stakes retidas da minoria mais
	// o skim da comissão; o delta da casa fecha a conta do pote.
	p := DefaultParams()
	room := Room{
		PostID: "post-4", Slot: 2, RoomNo: 1, PotCents: 160, Outcome: Ongoing,
		Bets: []Bet{
			{Account: "bob", Shard: "acc-a", AmountCents: 50, Direction: Hot},
			{Account: "charlie", Shard: "acc-b", AmountCents: 100, Direction: Not},
			{Account: "dan", Shard: "acc-a", AmountCents: 10, Direction: Hot},
		},
	}

	s := Tabulate(p, newTestGame(t, p), room, "acc-a", "creator")

	var payouts, forfeited int64
	for _, b := range room.Bets {
		e, ok := entryFor(s, b.Account)
		require.True(t, ok)
		if e.Type == EntryLoss {
			forfeited += b.AmountCents
		} else {
			payouts += e.AmountCents
		}
	}

	assert.Equal(t, int64(108), payouts)  // 90 + 18
	assert.Equal(t, int64(100), forfeited) // stake do Charlie fica retida

	houseDelta := room.PotCents - s.CommissionCents - payouts
	assert.Equal(t, int64(36), houseDelta) // 160 - 16 - 108
}

func TestTabulate_SoloBettorWinsByMajority(t *testing.T) {
	p := DefaultParams()
	room := Room{
		PostID: "post-5", Slot: 1, RoomNo: 1, PotCents: 40, Outcome: Ongoing,
		Bets: []Bet{
			{Account: "alice", Shard: "acc-a", AmountCents: 40, Direction: Not},
		},
	}

	s := Tabulate(p, newTestGame(t, p), room, "acc-a", "creator")

	assert.Equal(t, NotWon, s.Outcome)
	alice, _ := entryFor(s, "alice")
	assert.Equal(t, EntryPayout, alice.Type)
	assert.Equal(t, int64(72), alice.AmountCents)
}

func TestNewGame_Variants(t *testing.T) {
	p := DefaultParams()

	cents, err := NewGame(TokenCents, p)
	require.NoError(t, err)
	assert.NoError(t, cents.ValidateStake(10))
	assert.ErrorIs(t, cents.ValidateStake(9), ErrInvalidStake)

	sats, err := NewGame(TokenSats, p)
	require.NoError(t, err)
	assert.ErrorIs(t, sats.ValidateStake(50), ErrInvalidStake)
	assert.NoError(t, sats.ValidateStake(100))

	_, err = NewGame("DOGE", p)
	assert.ErrorIs(t, err, ErrUnknownToken)
}
