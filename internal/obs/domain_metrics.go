package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout attempts by outcome
	// (recorded, insufficient_stock, insufficient_tender, validation, error).
	CheckoutTotal *prometheus.CounterVec
	// OrderAmount records the total of successfully recorded orders in minor units.
	OrderAmount prometheus.Histogram
	// LoginTotal counts PIN login attempts by outcome (ok, denied, error).
	LoginTotal *prometheus.CounterVec
	// LowStockAlerts counts low-stock alert tasks enqueued after checkouts.
	LowStockAlerts prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers POS domain collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by outcome.",
		}, []string{"result"}))
		OrderAmount = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_amount",
			Help:      "Distribution of recorded order totals in minor currency units.",
			Buckets:   []float64{5_000, 10_000, 25_000, 50_000, 100_000, 250_000, 500_000, 1_000_000},
		}))
		LoginTotal = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Count of PIN login attempts by outcome.",
		}, []string{"result"}))
		LowStockAlerts = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_alerts_total",
			Help:      "Number of low-stock alert tasks enqueued.",
		}))
	})
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram) prometheus.Histogram {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
		panic(err)
	}
	return h
}
