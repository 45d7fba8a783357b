// Package bulk coordinates trial-type selection, cohort file acceptance,
// upload and per-row result display for organization screening.
package bulk

import (
	"context"
	"io"
	"sync"
	"time"

	"trialscreen/internal/catalog"
	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/logger"
	"trialscreen/internal/common/metrics"
	"trialscreen/internal/common/session"
	"trialscreen/internal/models"
	"trialscreen/internal/template"
)

// State names the phases of the bulk intake flow.
type State string

const (
	StateNoTrialType     State = "no-trial-type"
	StateTrialTypeChosen State = "trial-type-chosen"
	StateFileChosen      State = "file-chosen"
	StateUploading       State = "uploading"
	StateResultsShown    State = "results-shown"
)

// Uploader is the slice of the gateway this controller needs.
type Uploader interface {
	UploadCohort(ctx context.Context, trial catalog.TrialType, filename string, file io.Reader) (*models.BulkResultSet, error)
}

// Controller is the bulk intake state machine. Trial type and file can be
// chosen in either order; upload requires both, and at most one upload is
// in flight at a time.
type Controller struct {
	uploader Uploader
	session  session.Context
	logger   logger.Logger

	mu      sync.Mutex
	gen     uint64
	trial   catalog.TrialType
	file    *FileRef
	results *models.BulkResultSet
	lastErr *apperrors.StandardError

	uploading bool
}

func NewController(uploader Uploader, sc session.Context, log logger.Logger) *Controller {
	return &Controller{
		uploader: uploader,
		session:  sc,
		logger:   log.WithFields(map[string]interface{}{"component": "bulk-intake"}),
	}
}

// State derives the current phase from what has been chosen so far.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.uploading:
		return StateUploading
	case c.results != nil:
		return StateResultsShown
	case c.trial != "" && c.file != nil:
		return StateFileChosen
	case c.trial != "":
		return StateTrialTypeChosen
	default:
		return StateNoTrialType
	}
}

// ChooseTrialType selects the trial the cohort belongs to. Allowed any time
// before an upload starts; an already-chosen file is kept.
func (c *Controller) ChooseTrialType(trial catalog.TrialType) error {
	if !trial.Valid() {
		return apperrors.NewInvalidTrialType(trial.String())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.stateLocked(); s == StateUploading || s == StateResultsShown {
		return apperrors.NewInvalidState("choose-trial-type", string(s))
	}
	c.trial = trial
	c.lastErr = nil
	return nil
}

// ChooseFile runs the local acceptance gate and, on success, replaces the
// selected file. Drag-and-drop and manual browse both land here. Rejection
// leaves the previous selection untouched.
func (c *Controller) ChooseFile(f FileRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.stateLocked(); s == StateUploading || s == StateResultsShown {
		return apperrors.NewInvalidState("choose-file", string(s))
	}

	if gateErr := checkFile(f); gateErr != nil {
		c.lastErr = gateErr
		c.logger.Warn("file rejected by acceptance gate", map[string]interface{}{
			"fileName": f.Name,
			"fileSize": f.Size,
			"mimeType": f.MIME,
			"reason":   gateErr.Details,
		})
		return gateErr
	}

	c.file = &f
	c.lastErr = nil
	return nil
}

// RemoveFile discards the selected file without touching the trial type.
func (c *Controller) RemoveFile() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.stateLocked(); s == StateUploading || s == StateResultsShown {
		return apperrors.NewInvalidState("remove-file", string(s))
	}
	c.file = nil
	return nil
}

// Upload packages the selected file plus the trial-type tag and sends it
// for evaluation. Valid only with both chosen; a second upload while one is
// pending is rejected without issuing a request. On failure the state
// returns to FileChosen so the same file can be retried or replaced.
func (c *Controller) Upload(ctx context.Context, content io.Reader) (*models.BulkResultSet, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return nil, apperrors.NewUploadInFlight()
	}
	if s := c.stateLocked(); s != StateFileChosen {
		c.mu.Unlock()
		return nil, apperrors.NewInvalidState("upload", string(s))
	}
	trial := c.trial
	filename := c.file.Name
	gen := c.gen
	c.uploading = true
	c.lastErr = nil
	c.mu.Unlock()

	start := time.Now()
	results, err := c.uploader.UploadCohort(ctx, trial, filename, content)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.uploading = false
	if c.gen != gen {
		// Controller was reset while the upload was pending.
		return nil, apperrors.NewSelectionSuperseded()
	}

	if err != nil {
		metrics.CohortUploads.WithLabelValues(trial.String(), "error").Inc()
		upErr := apperrors.NewUploadFailed(trial.String(), err)
		c.lastErr = upErr
		return nil, upErr
	}

	metrics.CohortUploads.WithLabelValues(trial.String(), "ok").Inc()
	metrics.CohortUploadDuration.WithLabelValues(trial.String()).Observe(time.Since(start).Seconds())
	c.results = results
	return results, nil
}

// Reset starts a fresh job, discarding trial type, file and results. Valid
// only from ResultsShown ("upload another file").
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.stateLocked(); s != StateResultsShown {
		return apperrors.NewInvalidState("reset", string(s))
	}
	c.gen++
	c.trial = ""
	c.file = nil
	c.results = nil
	c.lastErr = nil
	return nil
}

// Template returns the CSV template for the chosen trial type. Read-only
// side action; does not change controller state.
func (c *Controller) Template() ([]byte, string, error) {
	c.mu.Lock()
	trial := c.trial
	c.mu.Unlock()

	if trial == "" {
		return nil, "", apperrors.NewInvalidState("template", string(StateNoTrialType))
	}
	data, err := template.CSV(trial)
	if err != nil {
		return nil, "", err
	}
	return data, template.Filename(trial), nil
}

// TrialType returns the chosen trial type, empty when none.
func (c *Controller) TrialType() catalog.TrialType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trial
}

// File returns the accepted file reference, nil when none.
func (c *Controller) File() *FileRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	f := *c.file
	return &f
}

// Results returns the held result set, nil outside ResultsShown.
func (c *Controller) Results() *models.BulkResultSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results
}

// LastError returns the most recent user-facing error, nil when none.
func (c *Controller) LastError() *apperrors.StandardError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
