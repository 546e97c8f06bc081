package metric

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gridsight-labs/gridsight/internal/formula"
)

// DependentsError reports a delete blocked by templates that still
// reference the target. It names every dependent, not just the first, so
// the caller can surface the complete set.
type DependentsError struct {
	ID         string
	Dependents []string
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("metric %q is referenced by %s; remove those references first",
		e.ID, strings.Join(e.Dependents, ", "))
}

// Store owns the metric templates of a dashboard. Mutations re-parse the
// formula and refresh the cached variable set; reads are safe under
// concurrent access, while mutation during an in-flight validation or
// evaluation pass must be serialized by the caller.
type Store struct {
	mu sync.RWMutex

	byID map[string]*Template
	// vars caches the free variables per template id, refreshed on every
	// mutation. Unparsable formulas cache an empty set; the validator
	// reports them via its own parse step.
	vars map[string][]string
}

// NewStore creates an empty template store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]*Template),
		vars: make(map[string][]string),
	}
}

// Create adds a template. A missing ID is assigned a fresh UUID. Creating
// an ID that already exists is an error; alias collisions with columns
// are the validator's concern.
func (s *Store) Create(t *Template) (*Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if _, exists := s.byID[t.ID]; exists {
		return nil, fmt.Errorf("metric %q already exists", t.ID)
	}

	stored := t.Clone()
	s.byID[stored.ID] = stored
	s.refreshVars(stored)
	return stored.Clone(), nil
}

// Update replaces an existing template and re-parses its formula.
func (s *Store) Update(t *Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[t.ID]; !exists {
		return fmt.Errorf("metric %q not found", t.ID)
	}
	stored := t.Clone()
	s.byID[stored.ID] = stored
	s.refreshVars(stored)
	return nil
}

// Delete removes a template, refusing when another template's formula
// still references its id. The error lists every dependent. The scan
// reads the variable cache, which is empty for a template whose formula
// failed to parse; such a dependent cannot block deletion, and once its
// formula is repaired validation reports the dangling reference as a
// missing binding.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		return fmt.Errorf("metric %q not found", id)
	}

	var dependents []string
	for otherID, otherVars := range s.vars {
		if otherID == id {
			continue
		}
		for _, v := range otherVars {
			if v == id {
				dependents = append(dependents, otherID)
				break
			}
		}
	}
	if len(dependents) > 0 {
		sort.Strings(dependents)
		return &DependentsError{ID: id, Dependents: dependents}
	}

	delete(s.byID, id)
	delete(s.vars, id)
	return nil
}

// Get returns a copy of a template by id.
func (s *Store) Get(id string) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// All returns copies of every template sorted by id for deterministic
// iteration.
func (s *Store) All() []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Template, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of templates.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Replace swaps the whole template set, used when loading a persisted
// dashboard document.
func (s *Store) Replace(templates []*Template) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*Template, len(templates))
	s.vars = make(map[string][]string, len(templates))
	for _, t := range templates {
		stored := t.Clone()
		if stored.ID == "" {
			stored.ID = uuid.New().String()
		}
		s.byID[stored.ID] = stored
		s.refreshVars(stored)
	}
}

// Vars returns the cached free-variable set of a template's formula.
func (s *Store) Vars(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vars[id]
}

func (s *Store) refreshVars(t *Template) {
	if t.IsLeaf() {
		s.vars[t.ID] = []string{t.Column}
		return
	}
	vars, err := formula.ExtractVariables(t.Formula)
	if err != nil {
		s.vars[t.ID] = nil
		return
	}
	s.vars[t.ID] = vars
}
