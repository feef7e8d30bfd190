package betting

import "time"

// Window deriva o slot corrente de um post a partir do horário de criação.
// slot = floor(decorrido/duração)+1; depois de MaxSlots janelas a aposta
// fecha para sempre. Função pura: qualquer leitor re-deriva o mesmo slot.
func Window(p Params, createdAt, now time.Time) (int, error) {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		// tolerância a skew de relógio entre shards: trata como primeira janela
		elapsed = 0
	}

	slot := int(elapsed/p.SlotDuration) + 1
	if slot > p.MaxSlots {
		return 0, ErrBettingClosed
	}
	return slot, nil
}

// SlotElapsed informa se a janela de um slot já se esgotou por completo:
// o slot corrente tem que ser estritamente maior que o slot da sala.
// Um post já fechado (além de MaxSlots) tem todos os slots esgotados.
func SlotElapsed(p Params, createdAt, now time.Time, slot int) bool {
	cur, err := Window(p, createdAt, now)
	if err != nil {
		return true
	}
	return cur > slot
}

// ResolveRoom decide em qual sala do slot a próxima aposta entra.
// highestRoom/highestCount descrevem a sala de maior número já existente
// no slot (0/0 se nenhuma). Sala cheia abre a de número seguinte.
func ResolveRoom(p Params, highestRoom, highestCount int) (room int, isNew bool) {
	if highestRoom == 0 {
		return 1, true
	}
	if highestCount >= p.RoomCapacity {
		return highestRoom + 1, true
	}
	return highestRoom, false
}
