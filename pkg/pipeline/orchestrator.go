package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clearintake-ai/platform/pkg/audit"
	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/clearintake-ai/platform/pkg/extraction"
	"github.com/clearintake-ai/platform/pkg/intake"
	"github.com/clearintake-ai/platform/pkg/observability/metrics"
	"github.com/clearintake-ai/platform/pkg/rules"
	"github.com/sirupsen/logrus"
)

// IntakeStore is the slice of the record store a run writes through.
// Upserts are keyed by intake id, so a rerun replaces prior results.
type IntakeStore interface {
	GetIntake(ctx context.Context, id string) (models.Intake, error)
	SetStatus(ctx context.Context, id, status string) error
	UpdateIntakeFields(ctx context.Context, id string, fields models.ExtractedFields, status string) error
	UpsertBenefits(ctx context.Context, id string, benefits models.BenefitsSummary) error
	UpsertAuthorization(ctx context.Context, id string, auth models.AuthorizationResult) error
	UpsertTranscript(ctx context.Context, id string, transcript models.Transcript) error
}

// Recorder appends audit events. A failed emission aborts the run: a
// step that cannot be recorded must not be treated as having happened.
type Recorder interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

// Orchestrator executes intake pipeline runs. Each run walks the same
// fixed steps, emitting an audit event after every one, and finishes by
// upserting results so the run is idempotent per intake.
type Orchestrator struct {
	store       IntakeStore
	recorder    Recorder
	extractor   extraction.Extractor
	engine      *rules.Engine
	settleDelay time.Duration
}

func NewOrchestrator(store IntakeStore, recorder Recorder, extractor extraction.Extractor, engine *rules.Engine, settleDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		store:       store,
		recorder:    recorder,
		extractor:   extractor,
		engine:      engine,
		settleDelay: settleDelay,
	}
}

// Execute runs the full pipeline for one intake. Callers invoke it from
// their own goroutine or queue consumer; the returned error is for
// logging only, since the outcome is observable through the intake's
// status and audit trail.
func (o *Orchestrator) Execute(ctx context.Context, req RunRequest) error {
	log := logger.Log.WithFields(map[string]interface{}{
		"intake_id": req.IntakeID,
		"run_id":    req.RunID,
	})
	metrics.IncRunStarted()
	log.Info("Intake pipeline run started")

	if err := o.emit(ctx, req, models.ActionRunStarted, req.Actor, nil); err != nil {
		return o.abort(ctx, req.IntakeID, log, err)
	}

	record, err := o.store.GetIntake(ctx, req.IntakeID)
	if err != nil {
		if errors.Is(err, intake.ErrIntakeNotFound) {
			// The record vanished between trigger and run. Nothing to
			// process and nothing to mark failed.
			log.Warn("Intake not found, abandoning run")
			return nil
		}
		return o.abort(ctx, req.IntakeID, log, fmt.Errorf("load intake: %w", err))
	}

	if err := o.store.SetStatus(ctx, req.IntakeID, models.IntakeStatusRunning); err != nil {
		return o.abort(ctx, req.IntakeID, log, fmt.Errorf("mark running: %w", err))
	}

	fields := extraction.ApplyDefaults(o.extractor.Extract(ctx, record.SourceRef))
	if err := o.emit(ctx, req, models.ActionOCRExtracted, "", snapshot(fields)); err != nil {
		return o.abort(ctx, req.IntakeID, log, err)
	}

	// Stands in for the verification latency of a live payer check.
	// Only this run's goroutine pauses; other intakes are unaffected.
	time.Sleep(o.settleDelay)

	benefits := o.engine.Benefits()
	if err := o.emit(ctx, req, models.ActionEligibilityChecked, "", snapshot(benefits)); err != nil {
		return o.abort(ctx, req.IntakeID, log, err)
	}

	auth := o.engine.Authorize(fields.Clinical.VisitsRequested)
	authAction := models.ActionAuthWaived
	if auth.AuthRequired {
		authAction = models.ActionAuthObtained
	}
	if err := o.emit(ctx, req, authAction, "", snapshot(auth)); err != nil {
		return o.abort(ctx, req.IntakeID, log, err)
	}

	if err := o.persist(ctx, req.IntakeID, fields, benefits, auth); err != nil {
		if aerr := o.emit(ctx, req, models.ActionSaveFailed, "", map[string]interface{}{"error": err.Error()}); aerr != nil {
			log.WithError(aerr).Error("Failed to record save failure")
		}
		return o.abort(ctx, req.IntakeID, log, err)
	}

	if err := o.emit(ctx, req, models.ActionSaved, "", nil); err != nil {
		return o.abort(ctx, req.IntakeID, log, err)
	}

	metrics.IncRunSaved()
	log.WithFields(map[string]interface{}{
		"auth_required":   auth.AuthRequired,
		"visits_approved": auth.VisitsApproved,
	}).Info("Intake pipeline run saved")
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, intakeID string, fields models.ExtractedFields, benefits models.BenefitsSummary, auth models.AuthorizationResult) error {
	if err := o.store.UpsertBenefits(ctx, intakeID, benefits); err != nil {
		return fmt.Errorf("persist benefits: %w", err)
	}
	if err := o.store.UpsertAuthorization(ctx, intakeID, auth); err != nil {
		return fmt.Errorf("persist authorization: %w", err)
	}
	transcript := models.Transcript{
		Steps:          []string{},
		DTMF:           []string{},
		OutcomeSummary: "simulated",
	}
	if err := o.store.UpsertTranscript(ctx, intakeID, transcript); err != nil {
		return fmt.Errorf("persist transcript: %w", err)
	}
	if err := o.store.UpdateIntakeFields(ctx, intakeID, fields, models.IntakeStatusSaved); err != nil {
		return fmt.Errorf("persist intake fields: %w", err)
	}
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, req RunRequest, action, actor string, after map[string]interface{}) error {
	return o.recorder.Emit(ctx, audit.Entry{
		EntityType: models.EntityIntake,
		EntityID:   req.IntakeID,
		Action:     action,
		ActorRole:  actor,
		After:      after,
		RunID:      req.RunID,
	})
}

// abort stops the run and marks the intake failed so it does not linger
// as running. The status write is best effort; the run error is what
// gets surfaced.
func (o *Orchestrator) abort(ctx context.Context, intakeID string, log *logrus.Entry, err error) error {
	metrics.IncRunFailed()
	log.WithError(err).Error("Intake pipeline run aborted")
	if serr := o.store.SetStatus(ctx, intakeID, models.IntakeStatusFailed); serr != nil {
		log.WithError(serr).Error("Failed to mark intake failed")
	}
	return err
}

// snapshot renders a result as the generic JSON map audit events carry.
func snapshot(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
