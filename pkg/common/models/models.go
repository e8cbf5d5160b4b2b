package models

import (
	"time"
)

// Intake lifecycle statuses
const (
	IntakeStatusCreated = "created"
	IntakeStatusRunning = "running"
	IntakeStatusSaved   = "saved"
	IntakeStatusFailed  = "failed"
)

// Audit entity types
const (
	EntityIntake = "pt_intake"
)

// Audit actions, in the order a successful run emits them
const (
	ActionRunStarted         = "runStarted"
	ActionOCRExtracted       = "ocrExtracted"
	ActionEligibilityChecked = "eligibilityChecked"
	ActionAuthObtained       = "authObtained"
	ActionAuthWaived         = "authWaived"
	ActionSaved              = "saved"
	ActionSaveFailed         = "saveFailed"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // runRequested
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Intake is a PT prior-authorization intake record. Patient, insurance,
// clinical and provider fields are denormalized onto the record once a
// pipeline run has extracted them.
type Intake struct {
	ID        string    `json:"intakeId"`
	SourceRef string    `json:"sourceRef"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	PatientFirst          string   `json:"patientFirst,omitempty"`
	PatientLast           string   `json:"patientLast,omitempty"`
	DOB                   string   `json:"dob,omitempty"`
	PayerName             string   `json:"payerName,omitempty"`
	PlanName              string   `json:"planName,omitempty"`
	GroupNumber           *string  `json:"groupNumber,omitempty"`
	MemberID              string   `json:"memberId,omitempty"`
	SubscriberName        string   `json:"subscriberName,omitempty"`
	ReferringProviderName string   `json:"referringProviderName,omitempty"`
	ReferringProviderNPI  string   `json:"referringProviderNpi,omitempty"`
	SiteOfCare            string   `json:"siteOfCare,omitempty"`
	CPTCodes              []string `json:"cptCodes,omitempty"`
	ICD10Code             string   `json:"icd10Code,omitempty"`
	VisitsRequested       int      `json:"visitsRequested,omitempty"`
}

// Document extraction payload, grouped the way referral documents lay
// the information out.
type PatientFields struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
}

type InsuranceFields struct {
	PayerName      string  `json:"payerName"`
	PlanName       string  `json:"planName"`
	GroupNumber    *string `json:"groupNumber"`
	MemberID       string  `json:"memberId"`
	SubscriberName string  `json:"subscriberName"`
}

type ClinicalFields struct {
	ICD10Code       string   `json:"icd10Code"`
	CPTCodes        []string `json:"cptCodes"`
	VisitsRequested int      `json:"visitsRequested"`
}

type ProviderFields struct {
	ReferringProviderName string `json:"referringProviderName"`
	ReferringProviderNPI  string `json:"referringProviderNpi"`
	SiteOfCare            string `json:"siteOfCare"`
}

type ExtractedFields struct {
	Patient   PatientFields   `json:"patient"`
	Insurance InsuranceFields `json:"insurance"`
	Clinical  ClinicalFields  `json:"clinical"`
	Provider  ProviderFields  `json:"provider"`
}

// BenefitsSummary is the plan snapshot returned by an eligibility check.
// Dates are plain YYYY-MM-DD strings, matching payer phone and portal
// responses.
type BenefitsSummary struct {
	CoverageStart string `json:"coverageStart"`
	CoverageEnd   string `json:"coverageEnd"`
	CopayOrCoins  string `json:"copayOrCoins"`
	PTVisitLimit  int    `json:"ptVisitLimit"`
	PTVisitsUsed  int    `json:"ptVisitsUsed"`
}

// AuthorizationResult captures a prior-authorization determination.
// AuthNumber is nil whenever authorization is not required.
type AuthorizationResult struct {
	AuthRequired   bool    `json:"authRequired"`
	VisitsApproved int     `json:"visitsApproved"`
	AuthNumber     *string `json:"authNumber"`
	ValidFrom      string  `json:"validFrom"`
	ValidTo        string  `json:"validTo"`
}

// Transcript summarizes the payer call placed for an intake.
type Transcript struct {
	Steps          []string `json:"steps"`
	DTMF           []string `json:"dtmf"`
	OutcomeSummary string   `json:"outcomeSummary"`
}

// AuditEvent is one immutable entry in an entity's audit history.
type AuditEvent struct {
	ID         int64                  `json:"id"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId"`
	Action     string                 `json:"action"`
	ActorRole  string                 `json:"actorRole"`
	Timestamp  time.Time              `json:"timestamp"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	RunID      string                 `json:"runId,omitempty"`
}

// IntakeDetail aggregates everything known about an intake. Eligibility,
// authorization and transcript are nil until a pipeline run has saved
// them.
type IntakeDetail struct {
	Intake          Intake               `json:"intake"`
	Eligibility     *BenefitsSummary     `json:"eligibility"`
	Authorization   *AuthorizationResult `json:"authorization"`
	Transcript      *Transcript          `json:"transcript"`
	Audit           []AuditEvent         `json:"audit"`
	CPTDescriptions map[string]string    `json:"cptDescriptions,omitempty"`
}

// API request/response shapes
type CreateIntakeRequest struct {
	SourceRef string `json:"sourceRef"`
}

type CreateIntakeResponse struct {
	IntakeID string `json:"intakeId"`
}

type TriggerRunResponse struct {
	RunID string `json:"runId"`
}

type DTMFRequest struct {
	Digit string `json:"digit"`
}

// IVRSessionState is the caller-facing view after start or a keypress.
type IVRSessionState struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	Prompt    string `json:"prompt"`
}

// IVRResult carries whatever the session has computed so far; both
// fields are nil until the corresponding branch has run.
type IVRResult struct {
	SessionID  string               `json:"sessionId"`
	Benefits   *BenefitsSummary     `json:"benefits"`
	AuthResult *AuthorizationResult `json:"authResult"`
}
