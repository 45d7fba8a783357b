// Package gateway abstracts the network boundary to the evaluation service.
// Every operation is a single call with no implicit retry: the two
// submission operations are not idempotent, so retry discipline belongs to
// the controllers.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"trialscreen/internal/catalog"
	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/logger"
	"trialscreen/internal/common/observability"
	"trialscreen/internal/common/session"
	"trialscreen/internal/models"
)

// Gateway is the network boundary used by both intake controllers.
type Gateway interface {
	TrialFields(ctx context.Context, trial catalog.TrialType) ([]models.FieldSpec, error)
	SubmitApplication(ctx context.Context, trial catalog.TrialType, data map[string]interface{}) (*models.EligibilityOutcome, error)
	UploadCohort(ctx context.Context, trial catalog.TrialType, filename string, file io.Reader) (*models.BulkResultSet, error)
	Analytics(ctx context.Context) (*models.AnalyticsSummary, error)
	MyApplications(ctx context.Context) ([]models.ApplicationRecord, error)
	Health(ctx context.Context) error
}

// serviceError is the error envelope the evaluation service uses for non-2xx
// responses.
type serviceError struct {
	Error string `json:"error"`
}

// Client talks JSON over HTTP to the evaluation service. Uploads go through
// a second resty client with an extended timeout, because the service
// evaluates every cohort row synchronously before answering.
type Client struct {
	http    *resty.Client
	uploads *resty.Client
	session session.Context
	logger  logger.Logger
	obs     *observability.Observability
}

func NewClient(baseURL string, timeout, uploadTimeout time.Duration, sc session.Context, log logger.Logger, obs *observability.Observability) *Client {
	std := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	up := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(uploadTimeout)

	return &Client{
		http:    std,
		uploads: up,
		session: sc,
		logger:  log.WithFields(map[string]interface{}{"component": "gateway"}),
		obs:     obs,
	}
}

func (c *Client) request(client *resty.Client, ctx context.Context) *resty.Request {
	req := client.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if !c.session.Anonymous() {
		req.SetHeader("X-Username", c.session.Username)
	}
	return req
}

func (c *Client) record(ctx context.Context, op string, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	if c.obs != nil {
		c.obs.RecordRequest(ctx, op, status, time.Since(start))
	}
}

// serviceFault extracts the error envelope from a non-2xx response.
func serviceFault(op string, resp *resty.Response) *apperrors.StandardError {
	var env serviceError
	body := string(resp.Body())
	if err := json.Unmarshal(resp.Body(), &env); err == nil && env.Error != "" {
		body = env.Error
	}
	return apperrors.NewServiceError(op, resp.StatusCode(), body)
}

// TrialFields fetches the ordered field schema for a trial type. The raw
// payload is admission-checked against an embedded JSON Schema before it is
// decoded, so a malformed service response surfaces as SchemaUnavailable
// instead of a half-applied schema.
func (c *Client) TrialFields(ctx context.Context, trial catalog.TrialType) ([]models.FieldSpec, error) {
	start := time.Now()
	resp, err := c.request(c.http, ctx).
		Get("/api/trial-fields/" + trial.String())
	defer func() { c.record(ctx, "trial_fields", err, start) }()
	if err != nil {
		err = apperrors.NewSchemaUnavailable(trial.String(), err)
		return nil, err
	}
	if resp.IsError() {
		if resp.StatusCode() >= 500 {
			err = apperrors.NewSchemaUnavailable(trial.String(), fmt.Errorf("status %d", resp.StatusCode()))
		} else {
			err = serviceFault("trial_fields", resp)
		}
		return nil, err
	}

	if admErr := checkFieldSchemaPayload(resp.Body()); admErr != nil {
		err = apperrors.NewSchemaUnavailable(trial.String(), admErr)
		return nil, err
	}

	var fields []models.FieldSpec
	if decErr := json.Unmarshal(resp.Body(), &fields); decErr != nil {
		err = apperrors.NewSchemaUnavailable(trial.String(), decErr)
		return nil, err
	}

	c.logger.Debug("trial field schema loaded", map[string]interface{}{
		"trialType":  trial.String(),
		"fieldCount": len(fields),
	})
	return fields, nil
}

// SubmitApplication sends one coerced record for evaluation. Not idempotent;
// the single-application controller guarantees at most one in flight.
func (c *Client) SubmitApplication(ctx context.Context, trial catalog.TrialType, data map[string]interface{}) (*models.EligibilityOutcome, error) {
	start := time.Now()
	var outcome models.EligibilityOutcome
	resp, err := c.request(c.http, ctx).
		SetBody(map[string]interface{}{
			"trial_type":   trial.String(),
			"patient_data": data,
		}).
		SetResult(&outcome).
		Post("/api/patient/apply")
	defer func() { c.record(ctx, "submit_application", err, start) }()
	if err != nil {
		err = apperrors.NewSubmissionFailed(trial.String(), err)
		return nil, err
	}
	if resp.IsError() {
		err = serviceFault("submit_application", resp)
		return nil, err
	}

	c.logger.Info("application evaluated", map[string]interface{}{
		"trialType":   trial.String(),
		"patientId":   outcome.PatientID,
		"eligibility": outcome.Eligibility,
	})
	return &outcome, nil
}

// UploadCohort streams one cohort file plus the trial-type tag as multipart
// form data. Not idempotent; the bulk controller guarantees at most one in
// flight.
func (c *Client) UploadCohort(ctx context.Context, trial catalog.TrialType, filename string, file io.Reader) (*models.BulkResultSet, error) {
	start := time.Now()
	var results models.BulkResultSet
	resp, err := c.request(c.uploads, ctx).
		SetFileReader("file", filename, file).
		SetFormData(map[string]string{"trial_type": trial.String()}).
		SetResult(&results).
		Post("/api/organization/upload")
	defer func() { c.record(ctx, "upload_cohort", err, start) }()
	if err != nil {
		err = apperrors.NewUploadFailed(trial.String(), err)
		return nil, err
	}
	if resp.IsError() {
		err = serviceFault("upload_cohort", resp)
		return nil, err
	}

	c.logger.Info("cohort evaluated", map[string]interface{}{
		"trialType":      trial.String(),
		"totalProcessed": results.TotalProcessed,
		"eligible":       results.Eligible,
		"ineligible":     results.Ineligible,
		"errors":         results.Errors,
	})
	return &results, nil
}

// Analytics fetches the aggregate dashboard summary.
func (c *Client) Analytics(ctx context.Context) (*models.AnalyticsSummary, error) {
	start := time.Now()
	var summary models.AnalyticsSummary
	resp, err := c.request(c.http, ctx).
		SetResult(&summary).
		Get("/api/analytics")
	defer func() { c.record(ctx, "analytics", err, start) }()
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		err = serviceFault("analytics", resp)
		return nil, err
	}
	return &summary, nil
}

// MyApplications lists the session user's past applications.
func (c *Client) MyApplications(ctx context.Context) ([]models.ApplicationRecord, error) {
	start := time.Now()
	var payload struct {
		Applications []models.ApplicationRecord `json:"applications"`
	}
	resp, err := c.request(c.http, ctx).
		SetResult(&payload).
		Get("/api/applications/me")
	defer func() { c.record(ctx, "my_applications", err, start) }()
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		err = serviceFault("my_applications", resp)
		return nil, err
	}
	return payload.Applications, nil
}

// Health checks service reachability.
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	resp, err := c.request(c.http, ctx).Get("/api")
	defer func() { c.record(ctx, "health", err, start) }()
	if err != nil {
		return err
	}
	if resp.IsError() {
		err = serviceFault("health", resp)
		return err
	}
	return nil
}
