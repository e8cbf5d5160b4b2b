package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	runsStarted         atomic.Int64
	runsSaved           atomic.Int64
	runsFailed          atomic.Int64
	auditEventsAppended atomic.Int64
	extractionDegraded  atomic.Int64
	ivrSessionsStarted  atomic.Int64
	ivrSessionsActive   atomic.Int64
	ivrKeypresses       atomic.Int64
)

func IncRunStarted() { runsStarted.Add(1) }

func IncRunSaved() { runsSaved.Add(1) }

func IncRunFailed() { runsFailed.Add(1) }

func IncAuditEvent() { auditEventsAppended.Add(1) }

func IncExtractionDegraded() { extractionDegraded.Add(1) }

func IncIVRSessionStarted() {
	ivrSessionsStarted.Add(1)
	ivrSessionsActive.Add(1)
}

func DecIVRSessionActive() {
	if ivrSessionsActive.Add(-1) < 0 {
		ivrSessionsActive.Store(0)
	}
}

func IncIVRKeypress() { ivrKeypresses.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP clearintake_pipeline_runs_started_total Number of intake pipeline runs started.\n")
	fmt.Fprintf(w, "# TYPE clearintake_pipeline_runs_started_total counter\n")
	fmt.Fprintf(w, "clearintake_pipeline_runs_started_total %d\n", runsStarted.Load())

	fmt.Fprintf(w, "# HELP clearintake_pipeline_runs_saved_total Number of intake pipeline runs that persisted their results.\n")
	fmt.Fprintf(w, "# TYPE clearintake_pipeline_runs_saved_total counter\n")
	fmt.Fprintf(w, "clearintake_pipeline_runs_saved_total %d\n", runsSaved.Load())

	fmt.Fprintf(w, "# HELP clearintake_pipeline_runs_failed_total Number of intake pipeline runs that stopped before saving.\n")
	fmt.Fprintf(w, "# TYPE clearintake_pipeline_runs_failed_total counter\n")
	fmt.Fprintf(w, "clearintake_pipeline_runs_failed_total %d\n", runsFailed.Load())

	fmt.Fprintf(w, "# HELP clearintake_audit_events_appended_total Number of audit events durably appended.\n")
	fmt.Fprintf(w, "# TYPE clearintake_audit_events_appended_total counter\n")
	fmt.Fprintf(w, "clearintake_audit_events_appended_total %d\n", auditEventsAppended.Load())

	fmt.Fprintf(w, "# HELP clearintake_extraction_degraded_total Number of document extractions that fell back to an empty payload.\n")
	fmt.Fprintf(w, "# TYPE clearintake_extraction_degraded_total counter\n")
	fmt.Fprintf(w, "clearintake_extraction_degraded_total %d\n", extractionDegraded.Load())

	fmt.Fprintf(w, "# HELP clearintake_ivr_sessions_started_total Number of IVR sessions started.\n")
	fmt.Fprintf(w, "# TYPE clearintake_ivr_sessions_started_total counter\n")
	fmt.Fprintf(w, "clearintake_ivr_sessions_started_total %d\n", ivrSessionsStarted.Load())

	fmt.Fprintf(w, "# HELP clearintake_ivr_sessions_active Number of IVR sessions not yet ended or discarded.\n")
	fmt.Fprintf(w, "# TYPE clearintake_ivr_sessions_active gauge\n")
	fmt.Fprintf(w, "clearintake_ivr_sessions_active %d\n", ivrSessionsActive.Load())

	fmt.Fprintf(w, "# HELP clearintake_ivr_keypresses_total Number of DTMF keypresses processed.\n")
	fmt.Fprintf(w, "# TYPE clearintake_ivr_keypresses_total counter\n")
	fmt.Fprintf(w, "clearintake_ivr_keypresses_total %d\n", ivrKeypresses.Load())
}
