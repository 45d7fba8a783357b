package single

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialscreen/internal/catalog"
	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/logger"
	"trialscreen/internal/common/session"
	"trialscreen/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func f64(v float64) *float64 { return &v }

// hypertensionSchema is a trimmed version of the production schema: a
// bounded number, a string-option select and a value/label select.
func hypertensionSchema() []models.FieldSpec {
	return []models.FieldSpec{
		{Name: "age", Label: "Age", Type: models.FieldNumber, Required: true, Min: f64(18), Max: f64(100)},
		{Name: "gender", Label: "Gender", Type: models.FieldSelect, Required: true, Options: []models.Option{
			{Value: "Male", Label: "Male"}, {Value: "Female", Label: "Female"},
		}},
		{Name: "consent", Label: "Consent", Type: models.FieldSelect, Required: true, Options: []models.Option{
			{Value: "Yes", Label: "Yes"}, {Value: "No", Label: "No"},
		}},
	}
}

func arthritisSchema() []models.FieldSpec {
	return []models.FieldSpec{
		{Name: "crp_level", Label: "CRP Level (mg/L)", Type: models.FieldNumber, Required: true, Min: f64(0), Max: f64(300)},
		{Name: "on_biologic_dmards", Label: "On Biologic DMARDs", Type: models.FieldSelect, Required: true, Options: []models.Option{
			{Value: float64(0), Label: "No"}, {Value: float64(1), Label: "Yes"},
		}},
	}
}

// fakeService stands in for the gateway. Schema fetches and submissions can
// be held open to stage races.
type fakeService struct {
	mu            sync.Mutex
	fields        map[catalog.TrialType][]models.FieldSpec
	fieldsErr     error
	fieldsStarted map[catalog.TrialType]chan struct{}
	fieldsRelease map[catalog.TrialType]chan struct{}

	outcome       *models.EligibilityOutcome
	submitErr     error
	submitStarted chan struct{}
	submitRelease chan struct{}
	submitCount   atomic.Int32
	lastPayload   map[string]interface{}
}

func newFakeService() *fakeService {
	return &fakeService{
		fields:        make(map[catalog.TrialType][]models.FieldSpec),
		fieldsStarted: make(map[catalog.TrialType]chan struct{}),
		fieldsRelease: make(map[catalog.TrialType]chan struct{}),
	}
}

func (f *fakeService) holdFields(trial catalog.TrialType) (started, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	started = make(chan struct{})
	release = make(chan struct{})
	f.fieldsStarted[trial] = started
	f.fieldsRelease[trial] = release
	return started, release
}

func (f *fakeService) holdSubmit() (started, release chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitStarted = make(chan struct{})
	f.submitRelease = make(chan struct{})
	return f.submitStarted, f.submitRelease
}

func (f *fakeService) TrialFields(ctx context.Context, trial catalog.TrialType) ([]models.FieldSpec, error) {
	f.mu.Lock()
	started := f.fieldsStarted[trial]
	release := f.fieldsRelease[trial]
	fields := f.fields[trial]
	err := f.fieldsErr
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (f *fakeService) SubmitApplication(ctx context.Context, trial catalog.TrialType, data map[string]interface{}) (*models.EligibilityOutcome, error) {
	f.submitCount.Add(1)

	f.mu.Lock()
	started := f.submitStarted
	release := f.submitRelease
	f.lastPayload = data
	outcome := f.outcome
	err := f.submitErr
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func newTestController(t *testing.T, svc *fakeService) *Controller {
	return NewController(svc, session.Context{Username: "jordan"}, logger.NewTestLogger(t))
}

func readyController(t *testing.T, svc *fakeService) *Controller {
	ctrl := newTestController(t, svc)
	require.NoError(t, ctrl.SelectTrial(context.Background(), catalog.Hypertension))
	require.Equal(t, StateReady, ctrl.State())
	return ctrl
}

func fillValidDraft(t *testing.T, ctrl *Controller) {
	require.NoError(t, ctrl.EditField("age", "45"))
	require.NoError(t, ctrl.EditField("gender", "Male"))
	require.NoError(t, ctrl.EditField("consent", "Yes"))
}

// ==========================
// Selection & Schema Loading
// ==========================

func TestSelectTrial_InitializesDraftFromSchema(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	ctrl := newTestController(t, svc)

	require.Equal(t, StateNoTrialSelected, ctrl.State())
	require.NoError(t, ctrl.SelectTrial(context.Background(), catalog.Hypertension))

	assert.Equal(t, StateReady, ctrl.State())
	assert.Equal(t, catalog.Hypertension, ctrl.TrialType())

	draft := ctrl.Draft()
	assert.Equal(t, map[string]string{"age": "", "gender": "", "consent": ""}, draft)
}

func TestSelectTrial_UnknownTrialType(t *testing.T) {
	ctrl := newTestController(t, newFakeService())

	err := ctrl.SelectTrial(context.Background(), catalog.TrialType("oncology"))

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidTrialType, apperrors.CodeOf(err))
	assert.Equal(t, StateNoTrialSelected, ctrl.State())
}

func TestSelectTrial_SchemaLoadFailure(t *testing.T) {
	svc := newFakeService()
	svc.fieldsErr = errors.New("503 from service")
	ctrl := newTestController(t, svc)

	err := ctrl.SelectTrial(context.Background(), catalog.Hypertension)

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSchemaUnavailable, apperrors.CodeOf(err))
	assert.Equal(t, StateError, ctrl.State())

	// Reselecting retries the load.
	svc.mu.Lock()
	svc.fieldsErr = nil
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	svc.mu.Unlock()
	require.NoError(t, ctrl.SelectTrial(context.Background(), catalog.Hypertension))
	assert.Equal(t, StateReady, ctrl.State())
}

func TestSelectTrial_StaleSchemaResponseDiscarded(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	svc.fields[catalog.Arthritis] = arthritisSchema()
	ctrl := newTestController(t, svc)

	started, release := svc.holdFields(catalog.Hypertension)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- ctrl.SelectTrial(context.Background(), catalog.Hypertension)
	}()
	<-started

	// Select arthritis before hypertension's schema arrives.
	require.NoError(t, ctrl.SelectTrial(context.Background(), catalog.Arthritis))

	close(release)
	err := <-firstDone
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSelectionSuperseded, apperrors.CodeOf(err))

	// The draft reflects arthritis only, never hypertension.
	assert.Equal(t, StateReady, ctrl.State())
	assert.Equal(t, catalog.Arthritis, ctrl.TrialType())
	assert.Equal(t, map[string]string{"crp_level": "", "on_biologic_dmards": ""}, ctrl.Draft())
}

// ==========================
// Field Editing
// ==========================

func TestEditField(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	ctrl := readyController(t, svc)

	require.NoError(t, ctrl.EditField("age", "45"))
	assert.Equal(t, "45", ctrl.Draft()["age"])

	err := ctrl.EditField("unknown_field", "x")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.CodeOf(err))
}

func TestEditField_OnlyValidInReady(t *testing.T) {
	ctrl := newTestController(t, newFakeService())

	err := ctrl.EditField("age", "45")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.CodeOf(err))
}

// ==========================
// Submission
// ==========================

func TestSubmit_ValidationViolationsBlockNetworkCall(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	ctrl := readyController(t, svc)

	require.NoError(t, ctrl.EditField("age", "17")) // below min, others missing

	_, err := ctrl.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidationFailed, apperrors.CodeOf(err))
	assert.Equal(t, StateReady, ctrl.State(), "violations keep the machine in Ready")
	assert.Equal(t, int32(0), svc.submitCount.Load(), "no request may be issued")
	assert.Equal(t, "17", ctrl.Draft()["age"], "draft preserved for correction")
}

func TestSubmit_CoercesDraftAndHoldsOutcome(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	svc.outcome = &models.EligibilityOutcome{
		PatientID:   41,
		TrialType:   "hypertension",
		Eligibility: models.EligibilityEligible,
		Message:     "You are eligible",
	}
	ctrl := readyController(t, svc)
	fillValidDraft(t, ctrl)

	outcome, err := ctrl.Submit(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateResult, ctrl.State())
	assert.Equal(t, models.EligibilityEligible, outcome.Eligibility)
	assert.Equal(t, outcome, ctrl.Result())

	// Numbers go over the wire typed; selects resolve to option values.
	assert.Equal(t, float64(45), svc.lastPayload["age"])
	assert.Equal(t, "Male", svc.lastPayload["gender"])
	assert.Equal(t, "Yes", svc.lastPayload["consent"])

	// The draft survives until an explicit reset.
	assert.Equal(t, "45", ctrl.Draft()["age"])
}

func TestSubmit_SecondSubmitWhileInFlightIsNoOp(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	svc.outcome = &models.EligibilityOutcome{Eligibility: models.EligibilityEligible}
	ctrl := readyController(t, svc)
	fillValidDraft(t, ctrl)

	started, release := svc.holdSubmit()

	firstDone := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background())
		firstDone <- err
	}()
	<-started

	_, err := ctrl.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSubmissionInFlight, apperrors.CodeOf(err))
	assert.Equal(t, int32(1), svc.submitCount.Load(), "no second request issued")

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, StateResult, ctrl.State())
}

func TestSubmit_FailureEntersErrorAndPreservesDraft(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	svc.submitErr = errors.New("connection reset")
	ctrl := readyController(t, svc)
	fillValidDraft(t, ctrl)

	_, err := ctrl.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSubmissionFailed, apperrors.CodeOf(err))
	assert.Equal(t, StateError, ctrl.State())

	// Back to the form with the draft intact, then resubmit.
	require.NoError(t, ctrl.BackToForm())
	assert.Equal(t, StateReady, ctrl.State())
	assert.Equal(t, "45", ctrl.Draft()["age"])

	svc.mu.Lock()
	svc.submitErr = nil
	svc.outcome = &models.EligibilityOutcome{Eligibility: models.EligibilityIneligible}
	svc.mu.Unlock()

	outcome, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.EligibilityIneligible, outcome.Eligibility)
}

func TestSubmit_OnlyValidInReady(t *testing.T) {
	ctrl := newTestController(t, newFakeService())

	_, err := ctrl.Submit(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.CodeOf(err))
}

// ==========================
// Reset
// ==========================

func TestReset_DiscardsEverything(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	svc.outcome = &models.EligibilityOutcome{Eligibility: models.EligibilityEligible}
	ctrl := readyController(t, svc)
	fillValidDraft(t, ctrl)

	_, err := ctrl.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateResult, ctrl.State())

	require.NoError(t, ctrl.Reset())

	assert.Equal(t, StateNoTrialSelected, ctrl.State())
	assert.Empty(t, ctrl.TrialType())
	assert.Empty(t, ctrl.Fields())
	assert.Empty(t, ctrl.Draft())
	assert.Nil(t, ctrl.Result())
}

func TestReset_OnlyValidFromResultOrError(t *testing.T) {
	svc := newFakeService()
	svc.fields[catalog.Hypertension] = hypertensionSchema()
	ctrl := readyController(t, svc)

	err := ctrl.Reset()

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidState, apperrors.CodeOf(err))
}
