package services

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesIngestedCounter *prometheus.CounterVec
	messagesParsedCounter   *prometheus.CounterVec
	parseFailuresCounter    *prometheus.CounterVec
)

func init() {
	messagesIngestedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_ingested_total",
			Help: "Total number of messages accepted for ingestion, per topic.",
		},
		[]string{"topic"},
	)
	messagesParsedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_parsed_total",
			Help: "Total number of messages claimed by a parser, per parser.",
		},
		[]string{"parser"},
	)
	parseFailuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_parse_failures_total",
			Help: "Total number of messages no parser claimed, per topic.",
		},
		[]string{"topic"},
	)
	prometheus.MustRegister(messagesIngestedCounter, messagesParsedCounter, parseFailuresCounter)
}
