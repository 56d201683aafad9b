// Package validate checks a plugin description for cross-entity consistency
// before anything can be generated from it or run against it.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prysmsh/tpsdk/pkg/definition"
)

// ErrInvalid matches every *Error through errors.Is.
var ErrInvalid = errors.New("invalid plugin definition")

// Rule names a validation rule.
type Rule string

const (
	RuleNonEmpty       Rule = "non-empty"
	RuleUniqueness     Rule = "uniqueness"
	RuleLocalization   Rule = "localization"
	RuleLines          Rule = "lines"
	RuleReference      Rule = "reference"
	RuleDataIdentity   Rule = "data-identity"
	RuleChoiceInitial  Rule = "choice-initial"
	RuleNumericInitial Rule = "numeric-initial"
	RuleEventStateKind Rule = "event-state-kind"
)

// Kind classifies a violation.
type Kind string

const (
	KindDuplicateID            Kind = "duplicate-id"
	KindInconsistentField      Kind = "inconsistent-field"
	KindInvalidInitialValue    Kind = "invalid-initial-value"
	KindOutOfRange             Kind = "out-of-range"
	KindTypeMismatch           Kind = "type-mismatch"
	KindEmptyEntity            Kind = "empty-entity"
	KindMissingDefaultLanguage Kind = "missing-default-language"
	KindLineLayout             Kind = "line-layout"
	KindUnknownReference       Kind = "unknown-reference"
)

// Violation is one broken rule, tied to the offending entity.
type Violation struct {
	Rule    Rule
	Kind    Kind
	Entity  string
	ID      string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s %q: %s", v.Kind, v.Entity, v.ID, v.Message)
}

// Error is returned when a description breaks one or more rules.
type Error struct {
	PluginID   string
	Violations []Violation
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "plugin %q: %d violation(s)", e.PluginID, len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  ")
		b.WriteString(v.String())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// Has reports whether any violation is of kind k.
func (e *Error) Has(k Kind) bool {
	for _, v := range e.Violations {
		if v.Kind == k {
			return true
		}
	}
	return false
}

// Option configures a validation run.
type Option func(*options)

type options struct {
	failFast bool
}

// FailFast stops at the first violation instead of collecting all of them.
func FailFast() Option {
	return func(o *options) { o.failFast = true }
}

type rule struct {
	name  Rule
	check func(d *definition.Description, reg *registry, r *report)
}

// rules run in this order; the order fixes the order of reported violations.
var rules = []rule{
	{RuleNonEmpty, checkNonEmpty},
	{RuleUniqueness, checkUniqueness},
	{RuleLocalization, checkLocalization},
	{RuleLines, checkLines},
	{RuleReference, checkReferences},
	{RuleDataIdentity, checkDataIdentity},
	{RuleChoiceInitial, checkChoiceInitial},
	{RuleNumericInitial, checkNumericInitial},
	{RuleEventStateKind, checkEventStateKind},
}

// Validate checks d against every rule. It does not modify d; the returned
// Model holds its own copy, so later changes to d do not leak into it.
func Validate(d *definition.Description, opts ...Option) (*Model, error) {
	if d == nil {
		return nil, errors.New("validate: nil description")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	reg := newRegistry(d)
	rep := &report{}
	for _, r := range rules {
		rep.rule = r.name
		r.check(d, reg, rep)
		if o.failFast && len(rep.violations) > 0 {
			rep.violations = rep.violations[:1]
			break
		}
	}
	if len(rep.violations) > 0 {
		return nil, &Error{PluginID: d.ID, Violations: rep.violations}
	}

	snap, err := snapshot(d)
	if err != nil {
		return nil, err
	}
	return newModel(snap), nil
}

func snapshot(d *definition.Description) (*definition.Description, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("snapshot description: %w", err)
	}
	out, err := definition.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot description: %w", err)
	}
	return out, nil
}

type report struct {
	rule       Rule
	violations []Violation
}

func (r *report) add(kind Kind, entity, id, format string, args ...any) {
	r.violations = append(r.violations, Violation{
		Rule:    r.rule,
		Kind:    kind,
		Entity:  entity,
		ID:      id,
		Message: fmt.Sprintf(format, args...),
	})
}

// Model is a description that passed validation, plus its id registries.
type Model struct {
	desc   *definition.Description
	fields map[string]definition.Data
	states map[string]definition.State
}

func newModel(d *definition.Description) *Model {
	m := &Model{
		desc:   d,
		fields: make(map[string]definition.Data),
		states: make(map[string]definition.State),
	}
	for _, a := range d.Actions() {
		for _, f := range a.Data {
			if _, ok := m.fields[f.ID]; !ok {
				m.fields[f.ID] = f
			}
		}
	}
	for _, c := range d.Connectors() {
		for _, f := range c.Data {
			if _, ok := m.fields[f.ID]; !ok {
				m.fields[f.ID] = f
			}
		}
	}
	for _, s := range d.States() {
		m.states[s.ID] = *s
	}
	return m
}

// Description returns the validated description. Callers must not modify it.
func (m *Model) Description() *definition.Description {
	return m.desc
}

// Field returns the canonical definition of a data id.
func (m *Model) Field(id string) (definition.Data, bool) {
	f, ok := m.fields[id]
	return f, ok
}

// FieldIDs returns every distinct data id, sorted.
func (m *Model) FieldIDs() []string {
	ids := make([]string, 0, len(m.fields))
	for id := range m.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// State returns a state by id.
func (m *Model) State(id string) (definition.State, bool) {
	s, ok := m.states[id]
	return s, ok
}
