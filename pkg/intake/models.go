package intake

import (
	"encoding/json"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
)

type intakeModel struct {
	ID        string    `gorm:"primaryKey;column:id"`
	SourceRef string    `gorm:"column:source_ref"`
	Status    string    `gorm:"column:status;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`

	PatientFirst          string         `gorm:"column:patient_first"`
	PatientLast           string         `gorm:"column:patient_last"`
	DOB                   string         `gorm:"column:dob"`
	PayerName             string         `gorm:"column:payer_name"`
	PlanName              string         `gorm:"column:plan_name"`
	GroupNumber           *string        `gorm:"column:group_number"`
	MemberID              string         `gorm:"column:member_id"`
	SubscriberName        string         `gorm:"column:subscriber_name"`
	ReferringProviderName string         `gorm:"column:referring_provider_name"`
	ReferringProviderNPI  string         `gorm:"column:referring_provider_npi"`
	SiteOfCare            string         `gorm:"column:site_of_care"`
	CPTCodes              datatypes.JSON `gorm:"column:cpt_codes"`
	ICD10Code             string         `gorm:"column:icd10_code"`
	VisitsRequested       int            `gorm:"column:visits_requested"`
}

func (intakeModel) TableName() string { return "pt_intakes" }

// Result rows are keyed by intake id, so reruns replace instead of
// accumulating.
type eligibilityModel struct {
	IntakeID      string    `gorm:"primaryKey;column:intake_id"`
	CoverageStart string    `gorm:"column:coverage_start"`
	CoverageEnd   string    `gorm:"column:coverage_end"`
	CopayOrCoins  string    `gorm:"column:copay_or_coins"`
	PTVisitLimit  int       `gorm:"column:pt_visit_limit"`
	PTVisitsUsed  int       `gorm:"column:pt_visits_used"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (eligibilityModel) TableName() string { return "eligibility_results" }

type authorizationModel struct {
	IntakeID       string    `gorm:"primaryKey;column:intake_id"`
	AuthRequired   bool      `gorm:"column:auth_required"`
	VisitsApproved int       `gorm:"column:visits_approved"`
	AuthNumber     *string   `gorm:"column:auth_number"`
	ValidFrom      string    `gorm:"column:valid_from"`
	ValidTo        string    `gorm:"column:valid_to"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (authorizationModel) TableName() string { return "authorization_records" }

type transcriptModel struct {
	IntakeID       string         `gorm:"primaryKey;column:intake_id"`
	Steps          datatypes.JSON `gorm:"column:steps"`
	DTMF           datatypes.JSON `gorm:"column:dtmf"`
	OutcomeSummary string         `gorm:"column:outcome_summary"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

func (transcriptModel) TableName() string { return "call_transcripts" }

func toIntake(row intakeModel) models.Intake {
	return models.Intake{
		ID:        row.ID,
		SourceRef: row.SourceRef,
		Status:    row.Status,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,

		PatientFirst:          row.PatientFirst,
		PatientLast:           row.PatientLast,
		DOB:                   row.DOB,
		PayerName:             row.PayerName,
		PlanName:              row.PlanName,
		GroupNumber:           row.GroupNumber,
		MemberID:              row.MemberID,
		SubscriberName:        row.SubscriberName,
		ReferringProviderName: row.ReferringProviderName,
		ReferringProviderNPI:  row.ReferringProviderNPI,
		SiteOfCare:            row.SiteOfCare,
		CPTCodes:              jsonStringArray(row.CPTCodes),
		ICD10Code:             row.ICD10Code,
		VisitsRequested:       row.VisitsRequested,
	}
}

func toBenefits(row eligibilityModel) models.BenefitsSummary {
	return models.BenefitsSummary{
		CoverageStart: row.CoverageStart,
		CoverageEnd:   row.CoverageEnd,
		CopayOrCoins:  row.CopayOrCoins,
		PTVisitLimit:  row.PTVisitLimit,
		PTVisitsUsed:  row.PTVisitsUsed,
	}
}

func toAuthorization(row authorizationModel) models.AuthorizationResult {
	return models.AuthorizationResult{
		AuthRequired:   row.AuthRequired,
		VisitsApproved: row.VisitsApproved,
		AuthNumber:     row.AuthNumber,
		ValidFrom:      row.ValidFrom,
		ValidTo:        row.ValidTo,
	}
}

func toTranscript(row transcriptModel) models.Transcript {
	t := models.Transcript{
		Steps:          jsonStringArray(row.Steps),
		DTMF:           jsonStringArray(row.DTMF),
		OutcomeSummary: row.OutcomeSummary,
	}
	if t.Steps == nil {
		t.Steps = []string{}
	}
	if t.DTMF == nil {
		t.DTMF = []string{}
	}
	return t
}

func jsonStringArray(data datatypes.JSON) []string {
	if len(data) == 0 {
		return nil
	}
	var result []string
	_ = json.Unmarshal(data, &result)
	return result
}
