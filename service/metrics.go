package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the dispatch metrics of one service on a private registry.
type Metrics struct {
	Registry        *prometheus.Registry
	FramesReceived  *prometheus.CounterVec
	ToSendTotal     *prometheus.CounterVec
	HandlerErrors   *prometheus.CounterVec
	Resyncs         *prometheus.CounterVec
	HandlerDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	framesReceived := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svcframe_frames_received_total",
		Help: "Frames read from inbound sockets.",
	}, []string{"channel"})

	toSend := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svcframe_to_send_total",
		Help: "Outbound sends by target and outcome.",
	}, []string{"kind", "name", "status"})

	handlerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svcframe_handler_errors_total",
		Help: "Frames whose processing failed.",
	}, []string{"channel"})

	resyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svcframe_resyncs_total",
		Help: "Snapshot requests caused by delta sequence gaps.",
	}, []string{"state"})

	handlerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "svcframe_handler_duration_seconds",
		Help:    "Time spent processing one inbound frame.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})

	reg.MustRegister(framesReceived, toSend, handlerErrors, resyncs, handlerDuration)

	return &Metrics{
		Registry:        reg,
		FramesReceived:  framesReceived,
		ToSendTotal:     toSend,
		HandlerErrors:   handlerErrors,
		Resyncs:         resyncs,
		HandlerDuration: handlerDuration,
	}
}
