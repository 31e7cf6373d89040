// Package metrics exposes model and validation quality as Prometheus metrics.
// Batch commands write them to a node exporter textfile when they finish.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/notargets/gossm/data"
	"github.com/notargets/gossm/model"
	"github.com/notargets/gossm/validation"
)

type Collector struct {
	registry *prometheus.Registry
	// Model size and spread per named model
	modelRank     *prometheus.GaugeVec
	modelVariance *prometheus.GaugeVec
	// Generalization per named model and discrepancy
	generalization *prometheus.GaugeVec
	foldScore      *prometheus.GaugeVec
	foldsTotal     *prometheus.CounterVec
	buildSeconds   *prometheus.HistogramVec
	// Procrustes alignment outcome
	alignIterations prometheus.Gauge
	alignMoved      prometheus.Gauge
	alignConverged  prometheus.Gauge
	mu              sync.Mutex
}

func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.modelRank = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gossm_model_rank",
		Help: "Number of basis directions in the model",
	}, []string{"model"})
	c.modelVariance = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gossm_model_total_variance",
		Help: "Sum of the model variances",
	}, []string{"model"})
	c.generalization = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gossm_generalization",
		Help: "Mean reconstruction discrepancy over held out items",
	}, []string{"model", "discrepancy"})
	c.foldScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gossm_fold_generalization",
		Help: "Generalization of a single cross validation fold",
	}, []string{"model", "fold"})
	c.foldsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gossm_folds_total",
		Help: "Cross validation folds scored",
	}, []string{"model"})
	c.buildSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gossm_build_seconds",
		Help:    "Wall time spent building a model",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"model"})
	c.alignIterations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gossm_procrustes_iterations",
		Help: "Sweeps run by the last Procrustes alignment",
	})
	c.alignMoved = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gossm_procrustes_last_move",
		Help: "Mean distance the reference moved in the last sweep",
	})
	c.alignConverged = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gossm_procrustes_converged",
		Help: "1 when the last alignment met its halt distance",
	})
	c.registry.MustRegister(c.modelRank, c.modelVariance, c.generalization, c.foldScore,
		c.foldsTotal, c.buildSeconds, c.alignIterations, c.alignMoved, c.alignConverged,
		collectors.NewGoCollector())
	return c
}

func (c *Collector) RecordModel(name string, m *model.LowRankModel) {
	c.modelRank.WithLabelValues(name).Set(float64(m.Rank()))
	c.modelVariance.WithLabelValues(name).Set(m.TotalVariance())
}

func (c *Collector) ObserveBuild(name string, seconds float64) {
	c.buildSeconds.WithLabelValues(name).Observe(seconds)
}

func (c *Collector) RecordGeneralization(name, discrepancy string, score float64) {
	c.generalization.WithLabelValues(name, discrepancy).Set(score)
}

func (c *Collector) RecordCrossValidation(name, discrepancy string, report *validation.CVReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range report.Folds {
		c.foldScore.WithLabelValues(name, strconv.Itoa(f.Fold)).Set(f.Score)
		c.foldsTotal.WithLabelValues(name).Inc()
	}
	c.generalization.WithLabelValues(name, discrepancy).Set(report.Mean)
}

func (c *Collector) RecordAlignment(res *data.ProcrustesResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alignIterations.Set(float64(res.Iterations))
	if n := len(res.DistanceHistory); n > 0 {
		c.alignMoved.Set(res.DistanceHistory[n-1])
	}
	if res.State == data.Converged {
		c.alignConverged.Set(1)
	} else {
		c.alignConverged.Set(0)
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile writes every metric in the text exposition format, atomically
// replacing path.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
