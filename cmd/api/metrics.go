package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cardarena/arena/src/app/battles"
	"github.com/cardarena/arena/src/domain/battle"
)

// battleMetrics records completed battles and forwards them to next.
type battleMetrics struct {
	completed *prometheus.CounterVec
	rounds    prometheus.Histogram
	next      battles.Notifier
}

func newBattleMetrics(reg prometheus.Registerer, active func() int64, next battles.Notifier) *battleMetrics {
	m := &battleMetrics{
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "battles",
			Name:      "completed_total",
			Help:      "Completed battles by outcome",
		}, []string{"outcome"}),
		rounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "arena",
			Subsystem: "battles",
			Name:      "rounds",
			Help:      "Rounds played per completed battle",
			Buckets:   []float64{1, 5, 10, 25, 50, 75, 99, 100},
		}),
		next: next,
	}
	inFlight := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "arena",
		Subsystem: "battles",
		Name:      "in_flight",
		Help:      "Battles currently being simulated",
	}, func() float64 { return float64(active()) })
	reg.MustRegister(m.completed, m.rounds, inFlight)
	return m
}

func (m *battleMetrics) BattleCompleted(ctx context.Context, b *battle.Battle, result battle.Result) error {
	outcome := "decisive"
	if b.IsDraw() {
		outcome = "draw"
	}
	m.completed.WithLabelValues(outcome).Inc()
	m.rounds.Observe(float64(len(result.Rounds)))
	if m.next == nil {
		return nil
	}
	return m.next.BattleCompleted(ctx, b, result)
}
