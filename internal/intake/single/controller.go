// Package single coordinates trial selection, schema loading, field
// editing, validation, submission and result display for one applicant.
package single

import (
	"context"
	"sync"

	"trialscreen/internal/catalog"
	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/logger"
	"trialscreen/internal/common/metrics"
	"trialscreen/internal/common/session"
	"trialscreen/internal/models"
	"trialscreen/internal/schema"
	"trialscreen/internal/validation"
)

// State names the phases of the single-application flow.
type State string

const (
	StateNoTrialSelected State = "no-trial-selected"
	StateSchemaLoading   State = "schema-loading"
	StateReady           State = "ready"
	StateSubmitting      State = "submitting"
	StateResult          State = "result"
	StateError           State = "error"
)

// Service is the slice of the gateway this controller needs.
type Service interface {
	schema.FieldSource
	SubmitApplication(ctx context.Context, trial catalog.TrialType, data map[string]interface{}) (*models.EligibilityOutcome, error)
}

// Controller is the single-application state machine. All methods are safe
// for concurrent use; at most one submission is in flight at a time, and a
// response that arrives after the selection has moved on is discarded.
type Controller struct {
	svc      Service
	resolver *schema.Resolver
	session  session.Context
	logger   logger.Logger

	mu      sync.Mutex
	gen     uint64
	state   State
	trial   catalog.TrialType
	fields  []models.FieldSpec
	draft   map[string]string
	result  *models.EligibilityOutcome
	lastErr *apperrors.StandardError
}

func NewController(svc Service, sc session.Context, log logger.Logger) *Controller {
	l := log.WithFields(map[string]interface{}{"component": "single-intake"})
	return &Controller{
		svc:      svc,
		resolver: schema.NewResolver(svc, l),
		session:  sc,
		logger:   l,
		state:    StateNoTrialSelected,
	}
}

// SelectTrial clears any prior draft and result and loads the schema for
// trial. Selecting again while a load is pending supersedes it: only the
// schema of the latest selection is ever applied. Returns once the schema
// is loaded, superseded or failed.
func (c *Controller) SelectTrial(ctx context.Context, trial catalog.TrialType) error {
	if !trial.Valid() {
		return apperrors.NewInvalidTrialType(trial.String())
	}

	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return apperrors.NewInvalidState("select-trial", string(StateSubmitting))
	}
	c.gen++
	gen := c.gen
	c.state = StateSchemaLoading
	c.trial = trial
	c.fields = nil
	c.draft = nil
	c.result = nil
	c.lastErr = nil
	c.mu.Unlock()

	fields, err := c.resolver.Load(ctx, trial)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		// A later selection or reset owns the state now.
		return apperrors.NewSelectionSuperseded()
	}

	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeSelectionSuperseded {
			return err
		}
		schemaErr := apperrors.NewSchemaUnavailable(trial.String(), err)
		c.state = StateError
		c.lastErr = schemaErr
		c.logger.Warn("schema load failed", map[string]interface{}{
			"trialType": trial.String(),
			"error":     err.Error(),
		})
		return schemaErr
	}

	// Draft and schema are replaced together so they always agree on the
	// field name set.
	draft := make(map[string]string, len(fields))
	for _, f := range fields {
		draft[f.Name] = ""
	}
	c.fields = fields
	c.draft = draft
	c.state = StateReady
	return nil
}

// EditField mutates exactly one draft entry. Valid only in Ready.
func (c *Controller) EditField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return apperrors.NewInvalidState("edit-field", string(c.state))
	}
	if _, ok := c.draft[name]; !ok {
		return apperrors.NewInvalidState("edit-field", "unknown field "+name)
	}
	c.draft[name] = value
	return nil
}

// Submit validates the draft locally and, when clean, sends the coerced
// record for evaluation. Violations keep the machine in Ready with no
// network call. Submitting while a submission is in flight is rejected
// without issuing a second request.
func (c *Controller) Submit(ctx context.Context) (*models.EligibilityOutcome, error) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return nil, apperrors.NewSubmissionInFlight()
	}
	if c.state != StateReady {
		c.mu.Unlock()
		return nil, apperrors.NewInvalidState("submit", string(c.state))
	}

	res := validation.Validate(c.fields, c.draft)
	if !res.Valid() {
		for _, v := range res.Violations {
			metrics.ValidationFailures.WithLabelValues(c.trial.String(), string(v.Reason)).Inc()
		}
		vErr := apperrors.NewValidationFailed(res.Messages())
		c.lastErr = vErr
		c.mu.Unlock()
		return nil, vErr
	}

	payload := coerceDraft(c.fields, c.draft)
	trial := c.trial
	gen := c.gen
	c.state = StateSubmitting
	c.lastErr = nil
	c.mu.Unlock()

	outcome, err := c.svc.SubmitApplication(ctx, trial, payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.state != StateSubmitting {
		// Controller was reset or torn down while the call was pending.
		return nil, apperrors.NewSelectionSuperseded()
	}

	if err != nil {
		metrics.SubmissionFailures.WithLabelValues(trial.String()).Inc()
		subErr := apperrors.NewSubmissionFailed(trial.String(), err)
		c.state = StateError
		c.lastErr = subErr
		return nil, subErr
	}

	metrics.ApplicationsSubmitted.WithLabelValues(trial.String(), outcome.Eligibility).Inc()
	c.state = StateResult
	c.result = outcome
	return outcome, nil
}

// BackToForm returns from a failed submission to Ready with the draft
// intact, so the user can resubmit. Only valid in Error while a schema is
// still loaded; after a schema load failure there is nothing to return to.
func (c *Controller) BackToForm() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateError || c.draft == nil {
		return apperrors.NewInvalidState("back-to-form", string(c.state))
	}
	c.state = StateReady
	return nil
}

// Reset discards trial type, schema, draft and result. Valid from Result or
// Error.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateResult && c.state != StateError {
		return apperrors.NewInvalidState("reset", string(c.state))
	}
	c.gen++
	c.state = StateNoTrialSelected
	c.trial = ""
	c.fields = nil
	c.draft = nil
	c.result = nil
	c.lastErr = nil
	c.resolver.Invalidate()
	return nil
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TrialType returns the selected trial type, empty when none is selected.
func (c *Controller) TrialType() catalog.TrialType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trial
}

// Fields returns the active schema in order.
func (c *Controller) Fields() []models.FieldSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.FieldSpec, len(c.fields))
	copy(out, c.fields)
	return out
}

// Draft returns a copy of the current draft values.
func (c *Controller) Draft() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.draft))
	for k, v := range c.draft {
		out[k] = v
	}
	return out
}

// Result returns the held outcome, nil outside Result.
func (c *Controller) Result() *models.EligibilityOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// LastError returns the most recent user-facing error, nil when none.
func (c *Controller) LastError() *apperrors.StandardError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
