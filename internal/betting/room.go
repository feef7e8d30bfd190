package betting

// Bet é a participação de uma conta numa sala. Uma conta aposta no máximo
// uma vez por post, pela vida inteira do post; a unicidade é garantida
// pelo shard da conta antes do registro.
type Bet struct {
	Account     string
	Shard       string // shard de conta que receberá o resultado
	AmountCents int64
	Direction   Direction
}

// Room é o bucket de capacidade limitada dentro de um slot.
type Room struct {
	PostID   string
	Slot     int
	RoomNo   int
	PotCents int64
	Outcome  Outcome
	Bets     []Bet
}

// Tipo de cada lançamento produzido pela tabulação.
type EntryType string

const (
	EntryPayout     EntryType = "PAYOUT"
	EntryDrawRefund EntryType = "DRAW_REFUND"
	EntryLoss       EntryType = "LOSS"
	EntryCommission EntryType = "COMMISSION"
)

// SettlementEntry é um lançamento destinado a uma conta em algum shard.
// LOSS carrega valor zero: serve só para resolver o PlacedBetRecord do
// perdedor no shard dele.
type SettlementEntry struct {
	Account     string
	Shard       string
	Type        EntryType
	AmountCents int64
}

// Settlement é o resultado da tabulação de uma sala.
type Settlement struct {
	Outcome         Outcome
	CommissionCents int64
	Entries         []SettlementEntry
}

// Tabulate decide o desfecho de uma sala e monta todos os lançamentos.
// Puro: quem chama publica as entregas primeiro e só então grava o
// desfecho (a escrita menos reversível fica por último).
//
// Maioria é por número de participantes, não por valor apostado. Empate
// devolve 1.0x a todos. Comissão sai do pote para o criador do post,
// inclusive no empate quando DrawPaysCommission estiver ligado.
func Tabulate(p Params, game StakeableGame, room Room, creatorShard, creatorAccount string) Settlement {
	var hotCount, notCount int
	for _, b := range room.Bets {
		if b.Direction == Hot {
			hotCount++
		} else {
			notCount++
		}
	}

	outcome := Draw
	var winning Direction
	switch {
	case hotCount > notCount:
		outcome, winning = HotWon, Hot
	case notCount > hotCount:
		outcome, winning = NotWon, Not
	}

	s := Settlement{Outcome: outcome}

	for _, b := range room.Bets {
		e := SettlementEntry{Account: b.Account, Shard: b.Shard}
		switch {
		case outcome == Draw:
			e.Type = EntryDrawRefund
			e.AmountCents = game.Refund(b.AmountCents)
		case b.Direction == winning:
			e.Type = EntryPayout
			e.AmountCents = game.Payout(b.AmountCents)
		default:
			// minoritário: stake já debitada fica retida, nada a creditar
			e.Type = EntryLoss
		}
		s.Entries = append(s.Entries, e)
	}

	if outcome != Draw || p.DrawPaysCommission {
		s.CommissionCents = game.Commission(room.PotCents)
		s.Entries = append(s.Entries, SettlementEntry{
			Account:     creatorAccount,
			Shard:       creatorShard,
			Type:        EntryCommission,
			AmountCents: s.CommissionCents,
		})
	}

	return s
}
