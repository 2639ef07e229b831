package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	uploadsStartedTotal   atomic.Uint64
	uploadsCompletedTotal atomic.Uint64
	uploadsCancelledTotal atomic.Uint64
	uploadsFailedTotal    atomic.Uint64
	duplicatesFoundTotal  atomic.Uint64

	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64

	notificationsDroppedTotal atomic.Uint64

	analysisJobsReceivedTotal      atomic.Uint64
	analysisJobsCompletedTotal     atomic.Uint64
	analysisJobsFailedTotal        atomic.Uint64
	analysisJobsUnrecoverableTotal atomic.Uint64

	uploadDuration   = newHistogram([]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000})
	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

// IncUploadStarted increments the started counter.
func IncUploadStarted() { uploadsStartedTotal.Add(1) }

// IncUploadCompleted increments the completed counter.
func IncUploadCompleted() { uploadsCompletedTotal.Add(1) }

// IncUploadCancelled increments the cancelled counter.
func IncUploadCancelled() { uploadsCancelledTotal.Add(1) }

// IncUploadFailed increments the failed counter.
func IncUploadFailed() { uploadsFailedTotal.Add(1) }

// IncDuplicateFound counts uploads that matched an existing document.
func IncDuplicateFound() { duplicatesFoundTotal.Add(1) }

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() { analysisStartedTotal.Add(1) }

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() { analysisCompletedTotal.Add(1) }

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() { analysisFailedTotal.Add(1) }

// IncNotificationDropped counts notifications that could not be written.
func IncNotificationDropped() { notificationsDroppedTotal.Add(1) }

// IncAnalysisJobsReceived counts queue messages picked up by the worker.
func IncAnalysisJobsReceived() { analysisJobsReceivedTotal.Add(1) }

// IncAnalysisJobsCompleted counts queue messages processed and deleted.
func IncAnalysisJobsCompleted() { analysisJobsCompletedTotal.Add(1) }

// IncAnalysisJobsFailed counts queue messages left for redelivery.
func IncAnalysisJobsFailed() { analysisJobsFailedTotal.Add(1) }

// IncAnalysisJobsDeletedUnrecoverable counts malformed or stale messages removed from the queue.
func IncAnalysisJobsDeletedUnrecoverable() { analysisJobsUnrecoverableTotal.Add(1) }

// ObserveUploadDurationMs records a pipeline run duration in milliseconds.
func ObserveUploadDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	uploadDuration.Observe(value)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "uploads_started_total", "Total uploads started", uploadsStartedTotal.Load())
	writeCounter(&buf, "uploads_completed_total", "Total uploads completed", uploadsCompletedTotal.Load())
	writeCounter(&buf, "uploads_cancelled_total", "Total uploads cancelled at the duplicate prompt", uploadsCancelledTotal.Load())
	writeCounter(&buf, "uploads_failed_total", "Total uploads failed", uploadsFailedTotal.Load())
	writeCounter(&buf, "uploads_duplicates_total", "Total uploads matching an existing document", duplicatesFoundTotal.Load())
	writeCounter(&buf, "analysis_started_total", "Total analyses started", analysisStartedTotal.Load())
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "notifications_dropped_total", "Total notifications that failed to write", notificationsDroppedTotal.Load())
	writeCounter(&buf, "analysis_jobs_received_total", "Total analysis jobs received by the worker", analysisJobsReceivedTotal.Load())
	writeCounter(&buf, "analysis_jobs_completed_total", "Total analysis jobs processed", analysisJobsCompletedTotal.Load())
	writeCounter(&buf, "analysis_jobs_failed_total", "Total analysis jobs left for redelivery", analysisJobsFailedTotal.Load())
	writeCounter(&buf, "analysis_jobs_unrecoverable_total", "Total analysis jobs deleted as unrecoverable", analysisJobsUnrecoverableTotal.Load())
	writeHistogram(&buf, "upload_duration_ms", "Upload pipeline duration in milliseconds", uploadDuration.Snapshot())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound covers it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
