package betting

// StakeableGame é a capability implementada por variante de token.
// A seleção acontece na construção do serviço; o resto do código só
// enxerga a interface.
type StakeableGame interface {
	Token() string
	// ValidateStake rejeita valores fora das regras da variante.
	ValidateStake(amountCents int64) error
	// Payout calcula o prêmio de um participante do lado majoritário.
	Payout(stakeCents int64) int64
	// Refund calcula a devolução em caso de empate.
	Refund(stakeCents int64) int64
	// Commission calcula a comissão do criador sobre o pote da sala.
	Commission(potCents int64) int64
}

// fixedOddsGame paga um multiplicador fixo, não derivado do pote.
type fixedOddsGame struct {
	token    string
	params   Params
	minStake int64
}

func (g fixedOddsGame) Token() string { return g.token }

func (g fixedOddsGame) ValidateStake(amountCents int64) error {
	if amountCents < g.minStake {
		return ErrInvalidStake
	}
	return nil
}

func (g fixedOddsGame) Payout(stakeCents int64) int64 {
	return bpsShare(stakeCents, g.params.PayoutMultiplierBps)
}

func (g fixedOddsGame) Refund(stakeCents int64) int64 { return stakeCents }

func (g fixedOddsGame) Commission(potCents int64) int64 {
	return bpsShare(potCents, g.params.CommissionRateBps)
}

// Variantes de token suportadas.
const (
	TokenCents = "CENTS" // token da plataforma, granularidade de centavo
	TokenSats  = "SATS"  // token utilitário, aposta mínima maior
)

// NewGame seleciona a variante de jogo pelo tipo de token.
func NewGame(token string, p Params) (StakeableGame, error) {
	switch token {
	case TokenCents:
		return fixedOddsGame{token: token, params: p, minStake: 10}, nil
	case TokenSats:
		return fixedOddsGame{token: token, params: p, minStake: 100}, nil
	default:
		return nil, ErrUnknownToken
	}
}
