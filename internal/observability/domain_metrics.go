package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	documentsAnalyzedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakelens_documents_analyzed_total",
			Help: "Total number of document analysis attempts by outcome.",
		},
		[]string{"outcome"},
	)
	repairRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakelens_repair_runs_total",
			Help: "Total number of data-quality repair attempts by outcome.",
		},
		[]string{"outcome"},
	)
	rowsLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakelens_rows_loaded_total",
			Help: "Total number of records loaded into lakehouse tables.",
		},
	)
	tablesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakelens_tables_created_total",
			Help: "Total number of table create statements issued.",
		},
	)
	questionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakelens_questions_total",
			Help: "Total number of natural-language questions handled.",
		},
	)
	sqlFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakelens_sql_failures_total",
			Help: "Total number of synthesized queries rejected by the lakehouse engine.",
		},
	)
	chartFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lakelens_chart_failures_total",
			Help: "Total number of chart specification attempts that were dropped.",
		},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakelens_exports_total",
			Help: "Total number of record-set exports by format.",
		},
		[]string{"format"},
	)
	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lakelens_model_call_duration_seconds",
			Help:    "Language-model call latency by operation.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(
		documentsAnalyzedTotal,
		repairRunsTotal,
		rowsLoadedTotal,
		tablesCreatedTotal,
		questionsTotal,
		sqlFailuresTotal,
		chartFailuresTotal,
		exportsTotal,
		modelCallDurationSeconds,
	)
}

func ObserveDocumentAnalyzed(outcome string) {
	documentsAnalyzedTotal.WithLabelValues(outcome).Inc()
}

func ObserveRepairRun(outcome string) {
	repairRunsTotal.WithLabelValues(outcome).Inc()
}

func ObserveRowsLoaded(count int) {
	if count > 0 {
		rowsLoadedTotal.Add(float64(count))
	}
}

func IncrementTablesCreated() {
	tablesCreatedTotal.Inc()
}

func IncrementQuestions() {
	questionsTotal.Inc()
}

func IncrementSQLFailures() {
	sqlFailuresTotal.Inc()
}

func IncrementChartFailures() {
	chartFailuresTotal.Inc()
}

func ObserveExport(format string) {
	exportsTotal.WithLabelValues(format).Inc()
}

func ObserveModelCall(operation string, elapsed time.Duration) {
	modelCallDurationSeconds.WithLabelValues(operation).Observe(elapsed.Seconds())
}
