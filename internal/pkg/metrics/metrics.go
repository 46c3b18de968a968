package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters for the flash sale engine.
type Metrics struct {
	registry *prometheus.Registry

	// Sale outcomes, labelled by result (recorded, replayed,
	// insufficient, rejected, error).
	SaleResults *prometheus.CounterVec

	// Depletion and revenue
	UnitsSold prometheus.Counter
	Revenue   prometheus.Counter

	// Storefront traffic
	Views  prometheus.Counter
	Clicks prometheus.Counter
}

// New creates and registers all metrics on a private registry.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		SaleResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sale_results_total",
				Help:      "Sale recording attempts by outcome",
			},
			[]string{"result"},
		),
		UnitsSold: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_sold_total",
			Help:      "Discounted units depleted from allocations",
		}),
		Revenue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_cents_total",
			Help:      "Recorded flash sale revenue in cents",
		}),
		Views: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_views_total",
			Help:      "Recorded campaign views",
		}),
		Clicks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaign_clicks_total",
			Help:      "Recorded campaign clicks",
		}),
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
