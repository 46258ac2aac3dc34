package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_items_processed_total",
		Help: "The total number of announcement folders processed, by final status",
	}, []string{"site", "status"})

	ItemDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grant_item_duration_seconds",
		Help:    "Wall time to process one announcement folder",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"site"})

	ExclusionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_exclusions_total",
		Help: "Total number of excluded announcements by reason",
	}, []string{"reason"})

	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_conversions_total",
		Help: "Attachment conversion attempts by format family, converter and result",
	}, []string{"family", "converter", "result"})

	ConversionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grant_conversion_cache_hits_total",
		Help: "Total number of sibling-file conversion cache hits",
	})

	EncodingRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_encoding_recoveries_total",
		Help: "Encoding-recovery retries by outcome",
	}, []string{"outcome"})

	ExtractionPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_extraction_passes_total",
		Help: "LLM extraction passes by pass number and result",
	}, []string{"pass", "result"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grant_extraction_duration_seconds",
		Help:    "Duration of LLM extraction calls",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"pass"})

	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_classifications_total",
		Help: "Classification outcomes by primary category",
	}, []string{"category"})

	IntakeCandidates = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "grant_intake_candidates",
		Help: "Number of candidate folders found during the last intake scan",
	}, []string{"site"})

	IntakeSkippedExisting = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grant_intake_skipped_existing_total",
		Help: "Folders skipped by the idempotency gate because a record already exists",
	}, []string{"site"})

	EmbeddingsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grant_embeddings_stored_total",
		Help: "Total number of announcement embeddings written to the vector store",
	})
)
