// Package metrics объявляет метрики Prometheus сервиса заявок на забор.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Источники смены статуса груза.
const (
	SourceStaff  = "staff"
	SourceDriver = "driver"
	SourceReturn = "return"
)

var (
	ShipmentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coletas_shipments_created_total",
		Help: "Total number of shipments successfully created.",
	})

	StatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletas_status_changes_total",
		Help: "Total number of shipment status changes by source and target status.",
	},
		[]string{"source", "status"},
	)

	ReturnRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coletas_return_requests_total",
		Help: "Total number of return requests accepted.",
	})

	LoginFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletas_login_failures_total",
		Help: "Total number of rejected logins by role.",
	},
		[]string{"role"},
	)

	DriverTokenRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coletas_driver_token_rejections_total",
		Help: "Total number of driver updates rejected because of a token mismatch.",
	})

	TrackingCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coletas_tracking_cache_lookups_total",
		Help: "Public tracking cache lookups by result.",
	},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coletas_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern, method and status code.",
		Buckets: prometheus.DefBuckets,
	},
		[]string{"route", "method", "code"},
	)
)
