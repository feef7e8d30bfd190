package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/radieske/hotnot-platform-poc/internal/betting"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrRoomResolved = errors.New("room already resolved")
)

// Postgres implementa os quatro armazéns duráveis do content shard:
// posts, salas (post,slot,sala), flags de slot pendente e o índice
// reverso (post,conta). Não existe transação entre shards; cada operação
// aqui é uma transação local única.
type Postgres struct {
	db     *sql.DB
	params betting.Params
}

func NewPostgres(db *sql.DB, params betting.Params) *Postgres {
	return &Postgres{db: db, params: params}
}

// CreatePost insere um post ativo.
func (p *Postgres) CreatePost(ctx context.Context, post *Post) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO posts (id, creator_shard, creator_account, created_at, status)
		VALUES ($1,$2,$3,$4,$5)`,
		post.ID, post.CreatorShard, post.CreatorAccount, post.CreatedAt, post.Status,
	)
	return err
}

// GetPost carrega um post pelo id.
func (p *Postgres) GetPost(ctx context.Context, id string) (*Post, error) {
	var post Post
	err := p.db.QueryRowContext(ctx, `
		SELECT id, creator_shard, creator_account, created_at, status
		FROM posts WHERE id=$1`, id).
		Scan(&post.ID, &post.CreatorShard, &post.CreatorAccount, &post.CreatedAt, &post.Status)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// SetPostStatus troca o status do post (delete/ban). Posts nunca são
// removidos fisicamente: salas pendentes ainda referenciam o registro.
func (p *Postgres) SetPostStatus(ctx context.Context, id, status string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE posts SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}
	return nil
}

// RegisterBet grava uma aposta no slot informado, resolvendo a sala com
// spillover dentro da mesma transação: trava a sala de maior número do
// slot, conta participantes e, se cheia ou ausente, abre a seguinte.
// Também alimenta o índice reverso e marca o slot como pendente de
// liquidação. Retorna a sala usada, o total de participantes dela e o pote.
func (p *Postgres) RegisterBet(ctx context.Context, postID string, slot int, bet RoomBet) (roomNo, participants int, potCents int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, 0, err
	}
	defer tx.Rollback()

	var highestRoom, highestCount int
	err = tx.QueryRowContext(ctx, `
		SELECT room_no FROM rooms
		WHERE post_id=$1 AND slot=$2
		ORDER BY room_no DESC
		LIMIT 1
		FOR UPDATE`, postID, slot).Scan(&highestRoom)
	if err != nil && err != sql.ErrNoRows {
		return 0, 0, 0, err
	}
	if highestRoom > 0 {
		// a contagem roda em statement separado, DEPOIS do lock: quem
		// esperou a trava conta num snapshot novo e enxerga as apostas
		// commitadas enquanto esperava. Subquery no mesmo statement do
		// FOR UPDATE manteria o snapshot antigo e deixaria passar um
		// participante a mais numa sala já cheia.
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM room_bets
			WHERE post_id=$1 AND slot=$2 AND room_no=$3`,
			postID, slot, highestRoom).Scan(&highestCount); err != nil {
			return 0, 0, 0, err
		}
	}

	roomNo, isNew := betting.ResolveRoom(p.params, highestRoom, highestCount)
	if isNew {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO rooms (post_id, slot, room_no, pot_cents, outcome)
			VALUES ($1,$2,$3,0,'ONGOING')`, postID, slot, roomNo); err != nil {
			return 0, 0, 0, err
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO room_bets (post_id, slot, room_no, account, account_shard, amount_cents, direction, placed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		postID, slot, roomNo, bet.Account, bet.Shard, bet.AmountCents, bet.Direction, bet.PlacedAt); err != nil {
		return 0, 0, 0, err
	}

	if err = tx.QueryRowContext(ctx, `
		UPDATE rooms SET pot_cents = pot_cents + $1
		WHERE post_id=$2 AND slot=$3 AND room_no=$4
		RETURNING pot_cents`, bet.AmountCents, postID, slot, roomNo).Scan(&potCents); err != nil {
		return 0, 0, 0, err
	}

	// índice reverso: responde "quem apostou neste post"; a unicidade é
	// responsabilidade do shard de conta, então só ignoramos duplicata
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO post_bettors (post_id, account) VALUES ($1,$2)
		ON CONFLICT DO NOTHING`, postID, bet.Account); err != nil {
		return 0, 0, 0, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO pending_slots (post_id, slot) VALUES ($1,$2)
		ON CONFLICT DO NOTHING`, postID, slot); err != nil {
		return 0, 0, 0, err
	}

	if isNew {
		participants = 1
	} else {
		participants = highestCount + 1
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, 0, err
	}
	return roomNo, participants, potCents, nil
}

// HighestRoom retorna a ocupação da sala de maior número de um slot,
// sem travar nada (consulta de status).
func (p *Postgres) HighestRoom(ctx context.Context, postID string, slot int) (RoomOccupancy, error) {
	var occ RoomOccupancy
	err := p.db.QueryRowContext(ctx, `
		SELECT r.room_no, r.pot_cents,
		       (SELECT COUNT(*) FROM room_bets b
		         WHERE b.post_id=r.post_id AND b.slot=r.slot AND b.room_no=r.room_no)
		FROM rooms r
		WHERE r.post_id=$1 AND r.slot=$2
		ORDER BY r.room_no DESC
		LIMIT 1`, postID, slot).Scan(&occ.RoomNo, &occ.PotCents, &occ.Participants)
	if err == sql.ErrNoRows {
		return RoomOccupancy{}, nil
	}
	if err != nil {
		return RoomOccupancy{}, err
	}
	return occ, nil
}

// PendingSlots lista os slots do post ainda aguardando liquidação.
func (p *Postgres) PendingSlots(ctx context.Context, postID string) ([]int, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT slot FROM pending_slots WHERE post_id=$1 ORDER BY slot`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// PostsWithPendingSlots lista os posts que ainda têm slot pendente.
// Usado pelo scheduler externo para disparar os sweeps.
func (p *Postgres) PostsWithPendingSlots(ctx context.Context, limit int) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT DISTINCT post_id FROM pending_slots LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RoomsForSlot carrega todas as salas de um slot com as apostas de cada uma.
func (p *Postgres) RoomsForSlot(ctx context.Context, postID string, slot int) ([]betting.Room, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT room_no, pot_cents, outcome FROM rooms
		WHERE post_id=$1 AND slot=$2 ORDER BY room_no`, postID, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []betting.Room
	for rows.Next() {
		r := betting.Room{PostID: postID, Slot: slot}
		var outcome string
		if err := rows.Scan(&r.RoomNo, &r.PotCents, &outcome); err != nil {
			return nil, err
		}
		r.Outcome = betting.Outcome(outcome)
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		bets, err := p.roomBets(ctx, postID, slot, rooms[i].RoomNo)
		if err != nil {
			return nil, err
		}
		rooms[i].Bets = bets
	}
	return rooms, nil
}

func (p *Postgres) roomBets(ctx context.Context, postID string, slot, roomNo int) ([]betting.Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT account, account_shard, amount_cents, direction FROM room_bets
		WHERE post_id=$1 AND slot=$2 AND room_no=$3 ORDER BY placed_at`, postID, slot, roomNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []betting.Bet
	for rows.Next() {
		var b betting.Bet
		var dir string
		if err := rows.Scan(&b.Account, &b.Shard, &b.AmountCents, &dir); err != nil {
			return nil, err
		}
		b.Direction = betting.Direction(dir)
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// MarkRoomOutcome grava o desfecho de uma sala exatamente uma vez.
// A cláusula outcome='ONGOING' garante a transição única mesmo com
// sweeps concorrentes ou repetidos.
func (p *Postgres) MarkRoomOutcome(ctx context.Context, postID string, slot, roomNo int, outcome betting.Outcome) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE rooms SET outcome=$1, settled_at=NOW()
		WHERE post_id=$2 AND slot=$3 AND room_no=$4 AND outcome='ONGOING'`,
		string(outcome), postID, slot, roomNo)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomResolved
	}
	return nil
}

// ClearPendingSlot remove o slot do conjunto pendente do post.
func (p *Postgres) ClearPendingSlot(ctx context.Context, postID string, slot int) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM pending_slots WHERE post_id=$1 AND slot=$2`, postID, slot)
	return err
}

// Bettors devolve o índice reverso: as contas que apostaram no post.
func (p *Postgres) Bettors(ctx context.Context, postID string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT account FROM post_bettors WHERE post_id=$1 ORDER BY account`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
