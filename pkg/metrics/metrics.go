// Package metrics 提供 Prometheus 指标集合与暴露端点。
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gavelworks/auctionhouse/pkg/logger"
)

// Metrics 拍卖域指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration prometheus.Histogram

	// 出价
	BidsPlacedTotal   prometheus.Counter
	BidsRejectedTotal *prometheus.CounterVec

	// 结算
	AuctionsSettledTotal *prometheus.CounterVec
	ScanPassesTotal      prometheus.Counter

	// 消费运行时
	ConsumerRetriesTotal     *prometheus.CounterVec
	ConsumerDeadLettersTotal *prometheus.CounterVec
}

// New 创建指标实例，serviceName 作为子系统名。
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration",
			Buckets:   prometheus.DefBuckets,
		}),
		BidsPlacedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "bids_placed_total",
			Help:      "Total accepted bids",
		}),
		BidsRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "bids_rejected_total",
			Help:      "Total rejected bids by reason",
		}, []string{"reason"}),
		AuctionsSettledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "auctions_settled_total",
			Help:      "Total settled auctions by outcome",
		}, []string{"outcome"}),
		ScanPassesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "scan_passes_total",
			Help:      "Total settlement scan passes",
		}),
		ConsumerRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "consumer_retries_total",
			Help:      "Total consumer retry attempts by topic",
		}, []string{"topic"}),
		ConsumerDeadLettersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "auctionhouse",
			Subsystem: serviceName,
			Name:      "consumer_dead_letters_total",
			Help:      "Total messages routed to dead-letter by topic",
		}, []string{"topic"}),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BidsPlacedTotal,
		m.BidsRejectedTotal,
		m.AuctionsSettledTotal,
		m.ScanPassesTotal,
		m.ConsumerRetriesTotal,
		m.ConsumerDeadLettersTotal,
	)
	return m
}

// Serve 在独立端口暴露 /metrics，阻塞运行。
func (m *Metrics) Serve(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "metrics endpoint started", "addr", addr, "path", path)
	return http.ListenAndServe(addr, mux)
}
