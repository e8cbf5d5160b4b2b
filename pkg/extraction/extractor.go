package extraction

import (
	"context"

	"github.com/clearintake-ai/platform/pkg/common/models"
)

// Extractor turns a source document into structured intake fields. It
// is total: implementations degrade to a zero payload rather than fail
// a pipeline run.
type Extractor interface {
	Extract(ctx context.Context, sourceRef string) models.ExtractedFields
}

// Demo defaults backfilled when a document yields no clinical details.
var defaultCPTCodes = []string{"97161", "97110"}

const (
	defaultICD10Code       = "M25.561"
	defaultVisitsRequested = 8
)

// ApplyDefaults backfills the clinical trio so a thin or failed
// extraction still produces a runnable intake.
func ApplyDefaults(fields models.ExtractedFields) models.ExtractedFields {
	if len(fields.Clinical.CPTCodes) == 0 {
		fields.Clinical.CPTCodes = append([]string(nil), defaultCPTCodes...)
	}
	if fields.Clinical.ICD10Code == "" {
		fields.Clinical.ICD10Code = defaultICD10Code
	}
	if fields.Clinical.VisitsRequested <= 0 {
		fields.Clinical.VisitsRequested = defaultVisitsRequested
	}
	return fields
}
