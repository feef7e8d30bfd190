package topics

const (
	// Resultados de salas tabuladas pelo sweeper (pagamentos, reembolsos, comissões)
	BetOutcomes = "bet_outcomes"

	// Apostas registradas no content shard (feed de atividade)
	BetRegistered = "bet_registered"

	// DLQs
	BetOutcomesDLQ = "bet_outcomes_dlq"
)
