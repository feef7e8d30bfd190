package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores do fluxo de aposta e liquidação. Registrados no registry
// default; cada serviço expõe só o que incrementa.
var (
	BetsPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_bets_placed_total",
		Help: "Apostas iniciadas no shard de conta, por resultado da saga",
	}, []string{"result"}) // open | closed | refused | refunded

	StakeRefunds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betting_stake_refunds_total",
		Help: "Compensações (StakeRefund) aplicadas após falha de registro",
	})

	BetsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betting_bets_registered_total",
		Help: "Apostas registradas no content shard",
	})

	RoomsTabulated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_rooms_tabulated_total",
		Help: "Salas tabuladas pelo sweeper, por desfecho",
	}, []string{"outcome"}) // hot_won | not_won | draw

	OutcomeDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_outcome_deliveries_total",
		Help: "Entregas de resultado processadas pelo worker, por status",
	}, []string{"status"}) // delivered | dlq | error
)
