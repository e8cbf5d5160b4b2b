package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clearintake-ai/platform/pkg/common/logger"
	"github.com/clearintake-ai/platform/pkg/common/models"
	"github.com/clearintake-ai/platform/pkg/gateway/httpclient"
	"github.com/clearintake-ai/platform/pkg/observability/metrics"
)

const extractionPrompt = `You are an intake assistant for physical therapy prior authorization. Read the referral document and answer with a single JSON object shaped as {"patient":{"firstName","lastName","dob"},"insurance":{"payerName","planName","groupNumber","memberId","subscriberName"},"clinical":{"icd10Code","cptCodes","visitsRequested"},"provider":{"referringProviderName","referringProviderNpi","siteOfCare"}}. Dates use YYYY-MM-DD, cptCodes is an array of strings, visitsRequested is an integer, and unknown values are null.`

// VisionExtractor reads referral documents through an Azure OpenAI
// vision deployment. Left unconfigured it returns empty payloads, which
// the pipeline backfills with defaults.
type VisionExtractor struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	client     *http.Client
}

func NewVisionExtractor(endpoint, apiKey, deployment, apiVersion string, timeout time.Duration) *VisionExtractor {
	return &VisionExtractor{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		deployment: deployment,
		apiVersion: apiVersion,
		client:     httpclient.New(timeout),
	}
}

func (x *VisionExtractor) Extract(ctx context.Context, sourceRef string) models.ExtractedFields {
	if x.apiKey == "" || x.endpoint == "" {
		logger.Log.Debug("Document extraction not configured, returning empty payload")
		return models.ExtractedFields{}
	}

	fields, err := x.extract(ctx, sourceRef)
	if err != nil {
		metrics.IncExtractionDegraded()
		logger.Log.WithError(err).WithField("source_ref", sourceRef).Warn("Document extraction degraded to empty payload")
		return models.ExtractedFields{}
	}
	return fields
}

func (x *VisionExtractor) extract(ctx context.Context, sourceRef string) (models.ExtractedFields, error) {
	documentURL, err := x.documentURL(sourceRef)
	if err != nil {
		return models.ExtractedFields{}, err
	}

	payload := map[string]interface{}{
		"messages": []interface{}{
			map[string]interface{}{"role": "system", "content": extractionPrompt},
			map[string]interface{}{"role": "user", "content": []interface{}{
				map[string]interface{}{"type": "image_url", "image_url": map[string]string{"url": documentURL}},
			}},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0,
	}
	body, _ := json.Marshal(payload)
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", x.endpoint, x.deployment, x.apiVersion)

	var content string
	err = httpclient.Retry(ctx, 3, 200*time.Millisecond, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if reqErr != nil {
			return httpclient.Permanent(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", x.apiKey)

		resp, doErr := x.client.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return readErr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("extraction backend returned %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			// Client errors will not improve on retry
			return httpclient.Permanent(fmt.Errorf("extraction backend returned %s", resp.Status))
		}

		var result struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(respBody, &result); err != nil {
			return httpclient.Permanent(err)
		}
		if len(result.Choices) == 0 {
			return httpclient.Permanent(fmt.Errorf("no choices in extraction response"))
		}
		content = result.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return models.ExtractedFields{}, err
	}

	var fields models.ExtractedFields
	if err := json.Unmarshal([]byte(stripFences(content)), &fields); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("malformed extraction payload: %w", err)
	}
	return fields, nil
}

// documentURL passes remote references through and inlines local files
// as data URIs.
func (x *VisionExtractor) documentURL(sourceRef string) (string, error) {
	if strings.HasPrefix(sourceRef, "http://") || strings.HasPrefix(sourceRef, "https://") || strings.HasPrefix(sourceRef, "data:") {
		return sourceRef, nil
	}

	content, err := os.ReadFile(filepath.Clean(sourceRef))
	if err != nil {
		return "", err
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(sourceRef)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(content)), nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
