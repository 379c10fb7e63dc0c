package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"craft-keeper/internal/download"
	"craft-keeper/internal/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsJob = "craft-keeper"

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_request_total",
			Help: "Total API requests",
		},
		[]string{"route"},
	)

	requestErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_request_errors_total",
			Help: "API requests answered with status >= 400",
		},
		[]string{"route"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launcher_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// prometheus 的计数器不能直接读取，健康检查使用本地计数
	totalRequests atomic.Int64
	totalErrors   atomic.Int64
)

func init() {
	prometheus.MustRegister(requestCount)
	prometheus.MustRegister(requestErrors)
	prometheus.MustRegister(requestDuration)
}

func IncrementRequestCount(route string) {
	requestCount.WithLabelValues(route).Inc()
	totalRequests.Add(1)
}

func IncrementErrorCount(route string) {
	requestErrors.WithLabelValues(route).Inc()
	totalErrors.Add(1)
}

func RecordRequestDuration(route string, seconds float64) {
	requestDuration.WithLabelValues(route).Observe(seconds)
}

func GetTotalRequestCount() int64 { return totalRequests.Load() }

func GetTotalErrorCount() int64 { return totalErrors.Load() }

/**
 * Push download metrics to a Pushgateway
 * @param {string} addr - Pushgateway URL, e.g. http://127.0.0.1:9091
 * @returns {error} Push error
 * @description
 * - Pushes the download counters and histogram under job "craft-keeper"
 * - The grouping key carries the launcher instance so several hosts can push
 */
func PushMetrics(addr, instance string) error {
	if addr == "" {
		return fmt.Errorf("pushgateway address is not configured")
	}
	p := push.New(addr, metricsJob).Grouping("instance", instance)
	for _, c := range download.Collectors() {
		p = p.Collector(c)
	}
	return p.Push()
}

/**
 * Push metrics periodically until ctx is done
 * @param {string} addr - Pushgateway URL
 * @param {time.Duration} interval - Delay between pushes
 * @description
 * - The first push happens immediately, its error is returned
 * - Later failures are logged and retried on the next tick
 */
func CollectAndPushMetrics(ctx context.Context, addr, instance string, interval time.Duration) error {
	logger.Infof("Pushing download metrics to %s every %s", addr, interval)
	if err := PushMetrics(addr, instance); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := PushMetrics(addr, instance); err != nil {
				logger.Warnf("Push metrics failed: %v", err)
			}
		}
	}
}
