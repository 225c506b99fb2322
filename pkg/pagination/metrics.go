package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsendo_pagination_pages_fetched_total",
		Help: "Total number of list pages fetched by the aggregator",
	})

	itemsAggregated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsendo_pagination_items_total",
		Help: "Total number of records returned by completed aggregations",
	})

	aggregationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsendo_pagination_aggregations_total",
		Help: "Total aggregations by outcome",
	}, []string{"outcome"}) // "exhausted", "capped", "error"
)
