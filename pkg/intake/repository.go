package intake

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrIntakeNotFound = errors.New("intake not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&intakeModel{},
		&eligibilityModel{},
		&authorizationModel{},
		&transcriptModel{},
	)
}

func (r *Repository) CreateIntake(ctx context.Context, id, sourceRef string) (models.Intake, error) {
	now := time.Now().UTC()
	row := &intakeModel{
		ID:        id,
		SourceRef: sourceRef,
		Status:    models.IntakeStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Intake{}, err
	}
	return toIntake(*row), nil
}

func (r *Repository) GetIntake(ctx context.Context, id string) (models.Intake, error) {
	var row intakeModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Intake{}, ErrIntakeNotFound
		}
		return models.Intake{}, err
	}
	return toIntake(row), nil
}

func (r *Repository) ListIntakes(ctx context.Context, limit int) ([]models.Intake, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []intakeModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	intakes := make([]models.Intake, 0, len(rows))
	for _, row := range rows {
		intakes = append(intakes, toIntake(row))
	}
	return intakes, nil
}

func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	return r.db.WithContext(ctx).Model(&intakeModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}).Error
}

// UpdateIntakeFields denormalizes an extraction payload onto the intake
// row together with its new status.
func (r *Repository) UpdateIntakeFields(ctx context.Context, id string, fields models.ExtractedFields, status string) error {
	cpt, _ := json.Marshal(fields.Clinical.CPTCodes)
	return r.db.WithContext(ctx).Model(&intakeModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"patient_first":           fields.Patient.FirstName,
		"patient_last":            fields.Patient.LastName,
		"dob":                     fields.Patient.DOB,
		"payer_name":              fields.Insurance.PayerName,
		"plan_name":               fields.Insurance.PlanName,
		"group_number":            fields.Insurance.GroupNumber,
		"member_id":               fields.Insurance.MemberID,
		"subscriber_name":         fields.Insurance.SubscriberName,
		"referring_provider_name": fields.Provider.ReferringProviderName,
		"referring_provider_npi":  fields.Provider.ReferringProviderNPI,
		"site_of_care":            fields.Provider.SiteOfCare,
		"cpt_codes":               datatypes.JSON(cpt),
		"icd10_code":              fields.Clinical.ICD10Code,
		"visits_requested":        fields.Clinical.VisitsRequested,
		"status":                  status,
		"updated_at":              time.Now().UTC(),
	}).Error
}

func (r *Repository) UpsertBenefits(ctx context.Context, id string, benefits models.BenefitsSummary) error {
	row := eligibilityModel{
		IntakeID:      id,
		CoverageStart: benefits.CoverageStart,
		CoverageEnd:   benefits.CoverageEnd,
		CopayOrCoins:  benefits.CopayOrCoins,
		PTVisitLimit:  benefits.PTVisitLimit,
		PTVisitsUsed:  benefits.PTVisitsUsed,
		UpdatedAt:     time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *Repository) UpsertAuthorization(ctx context.Context, id string, auth models.AuthorizationResult) error {
	row := authorizationModel{
		IntakeID:       id,
		AuthRequired:   auth.AuthRequired,
		VisitsApproved: auth.VisitsApproved,
		AuthNumber:     auth.AuthNumber,
		ValidFrom:      auth.ValidFrom,
		ValidTo:        auth.ValidTo,
		UpdatedAt:      time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *Repository) UpsertTranscript(ctx context.Context, id string, transcript models.Transcript) error {
	steps, _ := json.Marshal(transcript.Steps)
	dtmf, _ := json.Marshal(transcript.DTMF)
	row := transcriptModel{
		IntakeID:       id,
		Steps:          datatypes.JSON(steps),
		DTMF:           datatypes.JSON(dtmf),
		OutcomeSummary: transcript.OutcomeSummary,
		UpdatedAt:      time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Save(&row).Error
}

// GetBenefits returns nil without error when no run has saved results
// yet.
func (r *Repository) GetBenefits(ctx context.Context, id string) (*models.BenefitsSummary, error) {
	var row eligibilityModel
	if err := r.db.WithContext(ctx).First(&row, "intake_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	benefits := toBenefits(row)
	return &benefits, nil
}

func (r *Repository) GetAuthorization(ctx context.Context, id string) (*models.AuthorizationResult, error) {
	var row authorizationModel
	if err := r.db.WithContext(ctx).First(&row, "intake_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	auth := toAuthorization(row)
	return &auth, nil
}

func (r *Repository) GetTranscript(ctx context.Context, id string) (*models.Transcript, error) {
	var row transcriptModel
	if err := r.db.WithContext(ctx).First(&row, "intake_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	transcript := toTranscript(row)
	return &transcript, nil
}
