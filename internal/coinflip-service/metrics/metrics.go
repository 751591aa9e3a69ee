package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SettlementsTotal conta liquidações concluídas por resultado.
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coinflip_settlements_total",
		Help: "Settlements completed, by outcome.",
	}, []string{"outcome"})

	// PayoutLamportsTotal acumula lamports pagos em prêmios.
	PayoutLamportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coinflip_payout_lamports_total",
		Help: "Total lamports paid out on winning settlements.",
	})
)
