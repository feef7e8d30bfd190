package repo

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/hotnot-platform-poc/internal/ledger"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEvent    = errors.New("duplicate ledger event")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Postgres implementa o ledger append-only e o armazém de PlacedBetRecord
// do shard de conta. Saldo nunca é materializado: é sempre o fold do log.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// CreateAccount registra a conta neste shard (no-op se já existir).
func (p *Postgres) CreateAccount(ctx context.Context, account string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (id, created_at) VALUES ($1, NOW())
		ON CONFLICT DO NOTHING`, account)
	return err
}

// AccountExists informa se a conta tem principal registrado neste shard.
func (p *Postgres) AccountExists(ctx context.Context, account string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE id=$1`, account).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AppendEvent acrescenta um lançamento ao log. Lançamentos nunca são
// alterados nem removidos. external_ref não vazio é único por conta:
// reenvios do mesmo lançamento (ex.: comissão re-entregue) viram
// ErrDuplicateEvent, que o chamador trata como no-op.
func (p *Postgres) AppendEvent(ctx context.Context, e ledger.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO account_ledger (id, account, amount_cents, reason, external_ref, created_at)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6)
		ON CONFLICT (account, reason, external_ref) DO NOTHING`,
		e.ID, e.Account, e.AmountCents, string(e.Reason), e.ExternalRef, e.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

// DebitStake valida e grava o débito da stake numa transação única: trava
// a linha da conta, recalcula o fold e só então insere o evento STAKE.
// Checar saldo e debitar em statements soltos deixaria duas apostas
// simultâneas da mesma conta passarem ambas na checagem e o fold ficaria
// negativo; o lock serializa as apostas por conta.
func (p *Postgres) DebitStake(ctx context.Context, account string, stakeCents int64, betRef string, at time.Time) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM accounts WHERE id=$1 FOR UPDATE`, account).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var balance int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM account_ledger WHERE account=$1`,
		account).Scan(&balance); err != nil {
		return err
	}
	if balance < stakeCents {
		return ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO account_ledger (id, account, amount_cents, reason, external_ref, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		uuid.NewString(), account, -stakeCents, string(ledger.Stake), betRef, at); err != nil {
		return err
	}

	return tx.Commit()
}

// Balance é o fold do histórico da conta, calculado no banco.
func (p *Postgres) Balance(ctx context.Context, account string) (int64, error) {
	var balance int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM account_ledger WHERE account=$1`,
		account).Scan(&balance)
	return balance, err
}

// History pagina o histórico em ordem cronológica inversa. O cursor é o
// seq do último lançamento da página anterior ("" = começo).
func (p *Postgres) History(ctx context.Context, account, cursor string, limit int) (ledger.Page, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	before := int64(1<<62 - 1)
	if cursor != "" {
		n, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return ledger.Page{}, errors.New("invalid cursor")
		}
		before = n
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT seq, id, amount_cents, reason, COALESCE(external_ref,''), created_at
		FROM account_ledger
		WHERE account=$1 AND seq < $2
		ORDER BY seq DESC
		LIMIT $3`, account, before, limit)
	if err != nil {
		return ledger.Page{}, err
	}
	defer rows.Close()

	var page ledger.Page
	var lastSeq int64
	for rows.Next() {
		var e ledger.Event
		var reason string
		if err := rows.Scan(&lastSeq, &e.ID, &e.AmountCents, &reason, &e.ExternalRef, &e.CreatedAt); err != nil {
			return ledger.Page{}, err
		}
		e.Account = account
		e.Reason = ledger.Reason(reason)
		page.Events = append(page.Events, e)
	}
	if err := rows.Err(); err != nil {
		return ledger.Page{}, err
	}
	if len(page.Events) == limit {
		page.NextCursor = strconv.FormatInt(lastSeq, 10)
	}
	return page, nil
}

// InsertPlacedBet persiste o registro local depois do registro remoto
// confirmar BettingOpen.
func (p *Postgres) InsertPlacedBet(ctx context.Context, b *PlacedBet) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO placed_bets
			(content_shard, post_id, account, slot, room_no, direction, stake_cents, placed_at, outcome, payout_cents)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0)`,
		b.ContentShard, b.PostID, b.Account, b.Slot, b.RoomNo, b.Direction,
		b.StakeCents, b.PlacedAt, b.Outcome)
	return err
}

// GetPlacedBet carrega o registro por (content shard, post, conta).
func (p *Postgres) GetPlacedBet(ctx context.Context, contentShard, postID, account string) (*PlacedBet, error) {
	var b PlacedBet
	err := p.db.QueryRowContext(ctx, `
		SELECT content_shard, post_id, account, slot, room_no, direction,
		       stake_cents, placed_at, outcome, payout_cents
		FROM placed_bets
		WHERE content_shard=$1 AND post_id=$2 AND account=$3`,
		contentShard, postID, account).
		Scan(&b.ContentShard, &b.PostID, &b.Account, &b.Slot, &b.RoomNo,
			&b.Direction, &b.StakeCents, &b.PlacedAt, &b.Outcome, &b.PayoutCents)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ApplyOutcome resolve o PlacedBetRecord e credita o lançamento na mesma
// transação. Registro já resolvido retorna applied=false sem tocar nada:
// entregas repetidas mudam o saldo exatamente uma vez.
func (p *Postgres) ApplyOutcome(ctx context.Context, contentShard, postID, account, outcome string, event *ledger.Event) (applied bool, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `
		SELECT outcome FROM placed_bets
		WHERE content_shard=$1 AND post_id=$2 AND account=$3
		FOR UPDATE`, contentShard, postID, account).Scan(&current)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	if current != BetAwaitingResult {
		return false, nil // já resolvido: no-op idempotente
	}

	var payout int64
	if event != nil {
		payout = event.AmountCents
	}
	if _, err = tx.ExecContext(ctx, `
		UPDATE placed_bets SET outcome=$1, payout_cents=$2, settled_at=NOW()
		WHERE content_shard=$3 AND post_id=$4 AND account=$5`,
		outcome, payout, contentShard, postID, account); err != nil {
		return false, err
	}

	if event != nil {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO account_ledger (id, account, amount_cents, reason, external_ref, created_at)
			VALUES ($1,$2,$3,$4,NULLIF($5,''),$6)`,
			event.ID, event.Account, event.AmountCents, string(event.Reason),
			event.ExternalRef, event.CreatedAt); err != nil {
			return false, err
		}
	}

	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// PlacedBetsByAccount lista os registros da conta (consulta de status).
func (p *Postgres) PlacedBetsByAccount(ctx context.Context, account string) ([]PlacedBet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT content_shard, post_id, account, slot, room_no, direction,
		       stake_cents, placed_at, outcome, payout_cents
		FROM placed_bets WHERE account=$1 ORDER BY placed_at DESC`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []PlacedBet
	for rows.Next() {
		var b PlacedBet
		if err := rows.Scan(&b.ContentShard, &b.PostID, &b.Account, &b.Slot, &b.RoomNo,
			&b.Direction, &b.StakeCents, &b.PlacedAt, &b.Outcome, &b.PayoutCents); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}
