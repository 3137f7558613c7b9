// Package metrics holds the prometheus collectors updated by the trading loops.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_trades_total", Help: "Trades by terminal outcome"},
		[]string{"symbol", "role", "outcome"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_signals_total", Help: "Signals produced by the analyzer"},
		[]string{"symbol", "direction"},
	)
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_cycles_total", Help: "Trading cycles by result"},
		[]string{"symbol", "result"},
	)
	ProfitUSD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "bot_profit_usd", Help: "Cumulative realized profit"},
		[]string{"symbol", "role"},
	)
	EscalationStep = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "bot_escalation_step", Help: "Current martingale step of the master account"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(TradesTotal, SignalsTotal, CyclesTotal, ProfitUSD, EscalationStep)
}

// Handler exposes the default registry in the text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
