package topoplot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triangulationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topoplot_triangulation_cache_hits_total",
		Help: "The total number of hits on the triangulation cache",
	})
	triangulationCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topoplot_triangulation_cache_misses_total",
		Help: "The total number of misses on the triangulation cache",
	})
	triangulationCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topoplot_triangulation_cache_evictions_total",
		Help: "The total number of evictions from the triangulation cache",
	})
	maskCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topoplot_mask_cache_hits_total",
		Help: "The total number of hits on the mask cache",
	})
	maskCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topoplot_mask_cache_misses_total",
		Help: "The total number of misses on the mask cache",
	})
	interpolationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "topoplot_interpolation_duration_seconds",
		Help:    "The time taken to interpolate a grid",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"interpolator"})
)
