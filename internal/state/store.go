// Package state persists dashboard documents and their validation
// history in SQLite.
package state

import (
	"time"

	"github.com/gridsight-labs/gridsight/internal/project"
	"github.com/gridsight-labs/gridsight/internal/validate"
)

// Dashboard is a persisted document with store metadata.
type Dashboard struct {
	ID        string
	Name      string
	Document  *project.Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidationRun is one recorded validation outcome for a dashboard.
// Invalid configurations are saveable drafts, so the history includes
// failing runs.
type ValidationRun struct {
	ID          string
	DashboardID string
	Valid       bool
	Errors      []validate.Error
	CreatedAt   time.Time
}

// Store is the persistence boundary. The engine depends only on this
// interface so tests can construct isolated stores.
type Store interface {
	SaveDashboard(doc *project.Document) (*Dashboard, error)
	GetDashboard(id string) (*Dashboard, error)
	ListDashboards() ([]*Dashboard, error)
	DeleteDashboard(id string) error

	RecordValidation(dashboardID string, result *validate.Result) (*ValidationRun, error)
	ListValidations(dashboardID string, limit int) ([]*ValidationRun, error)

	Close() error
}
