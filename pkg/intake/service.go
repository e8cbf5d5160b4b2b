package intake

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/clearintake-ai/platform/pkg/audit"
	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/clearintake-ai/platform/pkg/terminology"
	"github.com/google/uuid"
)

// RunDispatchFunc hands a queued run to whichever dispatcher the service
// was wired with.
type RunDispatchFunc func(ctx context.Context, intakeID, runID, actor string) error

type Service struct {
	repo       *Repository
	audit      *audit.Service
	catalog    terminology.Catalog
	uploadsDir string
	dispatch   RunDispatchFunc
}

func NewService(repo *Repository, auditSvc *audit.Service, catalog terminology.Catalog, uploadsDir string, dispatch RunDispatchFunc) *Service {
	return &Service{
		repo:       repo,
		audit:      auditSvc,
		catalog:    catalog,
		uploadsDir: uploadsDir,
		dispatch:   dispatch,
	}
}

func (s *Service) CreateFromRef(ctx context.Context, sourceRef string) (models.Intake, error) {
	return s.repo.CreateIntake(ctx, uuid.New().String(), sourceRef)
}

// CreateFromUpload stores the document under the uploads directory as
// <intakeId>_<filename> and records that path as the source reference.
func (s *Service) CreateFromUpload(ctx context.Context, filename string, file io.Reader) (models.Intake, error) {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return models.Intake{}, fmt.Errorf("failed to prepare uploads dir: %w", err)
	}

	id := uuid.New().String()
	path := filepath.Join(s.uploadsDir, fmt.Sprintf("%s_%s", id, filepath.Base(filename)))
	dst, err := os.Create(path)
	if err != nil {
		return models.Intake{}, fmt.Errorf("failed to store upload: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		return models.Intake{}, fmt.Errorf("failed to store upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return models.Intake{}, fmt.Errorf("failed to store upload: %w", err)
	}

	return s.repo.CreateIntake(ctx, id, path)
}

func (s *Service) List(ctx context.Context, limit int) ([]models.Intake, error) {
	return s.repo.ListIntakes(ctx, limit)
}

// Get assembles the intake with whatever results and audit history exist
// for it.
func (s *Service) Get(ctx context.Context, id string) (models.IntakeDetail, error) {
	record, err := s.repo.GetIntake(ctx, id)
	if err != nil {
		return models.IntakeDetail{}, err
	}

	benefits, err := s.repo.GetBenefits(ctx, id)
	if err != nil {
		return models.IntakeDetail{}, err
	}
	auth, err := s.repo.GetAuthorization(ctx, id)
	if err != nil {
		return models.IntakeDetail{}, err
	}
	transcript, err := s.repo.GetTranscript(ctx, id)
	if err != nil {
		return models.IntakeDetail{}, err
	}
	events, err := s.audit.EventsByEntityID(ctx, id)
	if err != nil {
		return models.IntakeDetail{}, err
	}

	detail := models.IntakeDetail{
		Intake:        record,
		Eligibility:   benefits,
		Authorization: auth,
		Transcript:    transcript,
		Audit:         events,
	}
	if len(record.CPTCodes) > 0 {
		if descriptions := s.catalog.Describe(record.CPTCodes); len(descriptions) > 0 {
			detail.CPTDescriptions = descriptions
		}
	}
	return detail, nil
}

// TriggerRun queues a pipeline run and returns its id without waiting
// for the run to execute.
func (s *Service) TriggerRun(ctx context.Context, id, actor string) (string, error) {
	if _, err := s.repo.GetIntake(ctx, id); err != nil {
		return "", err
	}

	runID := uuid.New().String()
	if err := s.dispatch(ctx, id, runID, actor); err != nil {
		return "", err
	}

	logger.Log.WithFields(map[string]interface{}{
		"intake_id": id,
		"run_id":    runID,
	}).Info("Queued intake pipeline run")
	return runID, nil
}
