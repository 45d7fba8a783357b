// Package schema holds the single "currently active" field schema slot for
// a selection flow. Loads are tagged with a generation number so a stale
// response for a superseded trial type can never overwrite the schema of
// the one selected after it.
package schema

import (
	"context"
	"sync"

	"trialscreen/internal/catalog"
	apperrors "trialscreen/internal/common/errors"
	"trialscreen/internal/common/logger"
	"trialscreen/internal/common/metrics"
	"trialscreen/internal/models"
)

// FieldSource is the slice of the gateway the resolver needs.
type FieldSource interface {
	TrialFields(ctx context.Context, trial catalog.TrialType) ([]models.FieldSpec, error)
}

// Resolver fetches and caches exactly one schema: the one for the most
// recently selected trial type.
type Resolver struct {
	source FieldSource
	logger logger.Logger

	mu     sync.Mutex
	gen    uint64
	trial  catalog.TrialType
	fields []models.FieldSpec
}

func NewResolver(source FieldSource, log logger.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "schema-resolver"}),
	}
}

// Load fetches the schema for trial. If another Load supersedes this one
// before its response arrives, the response is discarded and
// SELECTION_SUPERSEDED is returned; the later selection's schema stands.
func (r *Resolver) Load(ctx context.Context, trial catalog.TrialType) ([]models.FieldSpec, error) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.trial = trial
	r.fields = nil
	r.mu.Unlock()

	fields, err := r.source.TrialFields(ctx, trial)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen != gen {
		r.logger.Debug("discarding stale schema response", map[string]interface{}{
			"trialType": trial.String(),
		})
		metrics.SchemaLoads.WithLabelValues(trial.String(), "superseded").Inc()
		return nil, apperrors.NewSelectionSuperseded()
	}

	if err != nil {
		metrics.SchemaLoads.WithLabelValues(trial.String(), "error").Inc()
		return nil, err
	}

	r.fields = fields
	metrics.SchemaLoads.WithLabelValues(trial.String(), "ok").Inc()
	return fields, nil
}

// Current returns the active trial type and its schema, or false when no
// schema is loaded.
func (r *Resolver) Current() (catalog.TrialType, []models.FieldSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fields == nil {
		return "", nil, false
	}
	return r.trial, r.fields, true
}

// Invalidate drops the active schema, e.g. on controller reset.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.trial = ""
	r.fields = nil
}
