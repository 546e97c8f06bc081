// Package engine orchestrates a dashboard: it loads the document and its
// dataset, validates the configuration, and produces evaluated metric
// snapshots for a given drill-down position.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gridsight-labs/gridsight/internal/catalog"
	"github.com/gridsight-labs/gridsight/internal/eval"
	"github.com/gridsight-labs/gridsight/internal/hierarchy"
	"github.com/gridsight-labs/gridsight/internal/metric"
	"github.com/gridsight-labs/gridsight/internal/project"
	"github.com/gridsight-labs/gridsight/internal/state"
	"github.com/gridsight-labs/gridsight/internal/table"
	"github.com/gridsight-labs/gridsight/internal/validate"
)

// Formatter renders a numeric metric value for display. Formatting is a
// presentation concern, so it is injected rather than baked in.
type Formatter func(float64) string

// Config holds engine configuration.
type Config struct {
	// Document is the dashboard definition.
	Document *project.Document
	// Dataset overrides the document's dataset path when non-empty.
	Dataset string
	// Store receives validation history when non-nil.
	Store state.Store
	// Formatter renders numeric values; a default is used when nil.
	Formatter Formatter
	// Logger is the structured logger (discard if nil).
	Logger *slog.Logger
}

// Engine ties the validator and evaluator to one document and dataset.
// Template edits go through Reload; validation and evaluation never
// mutate the document, so concurrent snapshots are safe.
type Engine struct {
	logger    *slog.Logger
	store     state.Store
	formatter Formatter

	mu       sync.RWMutex
	doc      *project.Document
	registry *catalog.Registry
	rows     []table.Row

	// Validation outcome for the current document revision, built lazily
	// and reset on Reload.
	result    *validate.Result
	plan      *validate.Plan
	evaluator *eval.Evaluator
}

// New creates an engine and loads the dataset named by the document.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Document == nil {
		return nil, fmt.Errorf("no dashboard document given")
	}
	formatter := cfg.Formatter
	if formatter == nil {
		formatter = func(v float64) string { return fmt.Sprintf("%g", v) }
	}

	e := &Engine{
		logger:    logger,
		store:     cfg.Store,
		formatter: formatter,
	}
	if err := e.Reload(cfg.Document, cfg.Dataset); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload swaps in a new document revision, reloads the dataset and
// discards the previous validation outcome.
func (e *Engine) Reload(doc *project.Document, datasetOverride string) error {
	datasetPath := doc.Dataset
	if datasetOverride != "" {
		datasetPath = datasetOverride
	}

	var rows []table.Row
	if datasetPath != "" {
		ds, err := table.LoadCSVFile(datasetPath)
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		rows = ds.Rows
		e.logger.Debug("dataset loaded", "path", datasetPath, "rows", len(rows))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = doc
	e.registry = catalog.NewRegistry(doc.Columns)
	e.rows = rows
	e.result = nil
	e.plan = nil
	e.evaluator = nil
	return nil
}

// Document returns the current document.
func (e *Engine) Document() *project.Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Rows returns the loaded dataset rows.
func (e *Engine) Rows() []table.Row {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rows
}

// Levels returns the hierarchy levels in drill order.
func (e *Engine) Levels() []hierarchy.Level {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return hierarchy.SortLevels(e.doc.Levels)
}

// Validate checks the current document revision. The outcome is cached
// until the next Reload; when a store is configured every fresh run is
// recorded there.
func (e *Engine) Validate() (*validate.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validateLocked()
}

func (e *Engine) validateLocked() (*validate.Result, error) {
	if e.result != nil {
		return e.result, nil
	}

	v := validate.New(e.logger)
	result, plan := v.Validate(e.doc.Columns, e.doc.Metrics, e.doc.Levels)
	e.result = result
	e.plan = plan
	if plan != nil {
		e.evaluator = eval.New(e.registry, e.doc.Metrics, plan, e.logger)
	}

	if e.store != nil && e.doc.ID != "" {
		if _, err := e.store.RecordValidation(e.doc.ID, result); err != nil {
			e.logger.Warn("failed to record validation run", "error", err)
		}
	}
	return result, nil
}

// Plan returns the evaluation plan, validating first if needed. The
// error carries the validation problems when the configuration is
// invalid.
func (e *Engine) Plan() (*validate.Plan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.validateLocked()
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &InvalidConfigError{Result: result}
	}
	return e.plan, nil
}

// InvalidConfigError signals that evaluation was refused because the
// configuration has validation errors. The full report rides along so
// callers can show every problem.
type InvalidConfigError struct {
	Result *validate.Result
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("configuration is invalid (%d validation errors); evaluation refused", len(e.Result.Errors))
}

func (e *Engine) template(id string) (*metric.Template, bool) {
	for _, t := range e.doc.Metrics {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}
