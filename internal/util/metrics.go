package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed order creations",
	}, []string{"reason"})

	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"from", "to"})

	StockMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mutations_total",
		Help: "Total number of committed stock mutations",
	}, []string{"type"})

	StockMutationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_mutations_failed_total",
		Help: "Total number of rejected stock mutations",
	}, []string{"reason"})

	StockMutationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_mutation_latency_seconds",
		Help:    "Latency of ledger stock mutations",
		Buckets: prometheus.DefBuckets,
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock alerts raised",
	})

	LowStockAlertsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_resolved_total",
		Help: "Total number of low stock alerts resolved",
	})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notification emails sent",
	}, []string{"kind"})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of notification emails that failed after retries",
	}, []string{"kind"})

	CSVRowsImportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csv_rows_imported_total",
		Help: "Total number of product rows imported from CSV",
	})

	CSVRowsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "csv_rows_failed_total",
		Help: "Total number of CSV product rows skipped",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
