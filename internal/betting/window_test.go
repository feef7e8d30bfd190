package betting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_SlotDerivation(t *testing.T) {
	p := DefaultParams()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"first instant", 0, 1},
		{"inside first hour", 59 * time.Minute, 1},
		{"exactly one hour", time.Hour, 2},
		{"middle of lifetime", 25*time.Hour + 30*time.Minute, 26},
		{"last valid window", 47*time.Hour + 59*time.Minute, 48},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slot, err := Window(p, createdAt, createdAt.Add(tc.elapsed))
			require.NoError(t, err)
			assert.Equal(t, tc.want, slot)
		})
	}
}

func TestWindow_ClosedAfterLifetime(t *testing.T) {
	p := DefaultParams()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// exatamente 48h já cai fora da última janela válida
	_, err := Window(p, createdAt, createdAt.Add(48*time.Hour))
	assert.ErrorIs(t, err, ErrBettingClosed)

	_, err = Window(p, createdAt, createdAt.Add(72*time.Hour))
	assert.ErrorIs(t, err, ErrBettingClosed)
}

func TestWindow_ClockSkewBeforeCreation(t *testing.T) {
	p := DefaultParams()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	slot, err := Window(p, createdAt, createdAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, slot)
}

func TestSlotElapsed(t *testing.T) {
	p := DefaultParams()
	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// dentro do próprio slot ainda não esgotou
	assert.False(t, SlotElapsed(p, createdAt, createdAt.Add(30*time.Minute), 1))
	// slot corrente estritamente maior => esgotado
	assert.True(t, SlotElapsed(p, createdAt, createdAt.Add(61*time.Minute), 1))
	// post fechado tem todos os slots esgotados
	assert.True(t, SlotElapsed(p, createdAt, createdAt.Add(50*time.Hour), 48))
}

func TestResolveRoom_Spillover(t *testing.T) {
	p := DefaultParams()

	// nenhuma sala ainda no slot
	room, isNew := ResolveRoom(p, 0, 0)
	assert.Equal(t, 1, room)
	assert.True(t, isNew)

	// sala com vaga recebe a aposta
	room, isNew = ResolveRoom(p, 1, 99)
	assert.Equal(t, 1, room)
	assert.False(t, isNew)

	// 101ª aposta abre a sala seguinte
	room, isNew = ResolveRoom(p, 1, 100)
	assert.Equal(t, 2, room)
	assert.True(t, isNew)

	room, isNew = ResolveRoom(p, 7, 100)
	assert.Equal(t, 8, room)
	assert.True(t, isNew)
}
