package pkg

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RedemptionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offerpoint_redemptions_created_total",
		Help: "Total number of redemption requests created",
	})

	RedemptionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offerpoint_redemption_transitions_total",
		Help: "Accepted redemption status transitions",
	}, []string{"to_status"})

	TransitionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offerpoint_transition_conflicts_total",
		Help: "Transitions rejected with stale_version",
	})

	ConversionsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offerpoint_conversions_credited_total",
		Help: "Offerwall conversions credited to the ledger",
	}, []string{"provider"})

	FulfillmentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offerpoint_fulfillment_attempts_total",
		Help: "Fulfillment payout attempts by outcome",
	}, []string{"outcome"})

	FulfillmentQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offerpoint_fulfillment_queue_depth",
		Help: "Jobs currently queued or processing",
	})
)
