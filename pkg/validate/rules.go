package validate

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/prysmsh/tpsdk/pkg/definition"
)

var placeholderRe = regexp.MustCompile(`\{\$([^$]+)\$\}`)

func checkNonEmpty(d *definition.Description, _ *registry, r *report) {
	if d.ID == "" {
		r.add(KindEmptyEntity, "plugin", d.Name, "plugin id is empty")
	}
	if strings.TrimSpace(d.Name) == "" {
		r.add(KindEmptyEntity, "plugin", d.ID, "plugin name is empty")
	}
	if d.StartCmd == "" {
		r.add(KindEmptyEntity, "plugin", d.ID, "plugin_start_cmd is empty")
	}

	for ci := range d.Categories {
		c := &d.Categories[ci]
		if c.ID == "" {
			r.add(KindEmptyEntity, "category", c.Name, "category id is empty")
		}
		if c.Name == "" {
			r.add(KindEmptyEntity, "category", c.ID, "category name is empty")
		}
		if c.Len() == 0 {
			r.add(KindEmptyEntity, "category", c.ID, "declares no actions, events, states or connectors")
		}
		for ai := range c.Actions {
			nonEmptyAction(&c.Actions[ai], r)
		}
		for _, e := range c.Events {
			if e.ID == "" {
				r.add(KindEmptyEntity, "event", e.Name, "event id is empty")
			}
			if e.Name == "" {
				r.add(KindEmptyEntity, "event", e.ID, "event name is empty")
			}
			if e.Format == "" {
				r.add(KindEmptyEntity, "event", e.ID, "event format is empty")
			}
			switch e.ValueType {
			case definition.EventChoice:
				if len(e.Choices) == 0 {
					r.add(KindEmptyEntity, "event", e.ID, "choice event has no choices")
				}
			case definition.EventText:
			default:
				r.add(KindEmptyEntity, "event", e.ID, "unknown value type %q", e.ValueType)
			}
			for _, ls := range e.LocalStates {
				if ls.ID == "" {
					r.add(KindEmptyEntity, "event", e.ID, "local state id is empty")
				}
			}
		}
		for _, s := range c.States {
			if s.ID == "" {
				r.add(KindEmptyEntity, "state", s.Description, "state id is empty")
			}
			if s.Description == "" {
				r.add(KindEmptyEntity, "state", s.ID, "state description is empty")
			}
			if s.Kind == definition.StateChoice && len(s.Choices) == 0 {
				r.add(KindEmptyEntity, "state", s.ID, "choice state has no choices")
			}
		}
		for _, k := range c.Connectors {
			if k.ID == "" {
				r.add(KindEmptyEntity, "connector", k.Name, "connector id is empty")
			}
			if k.Name == "" {
				r.add(KindEmptyEntity, "connector", k.ID, "connector name is empty")
			}
			if k.Format == "" {
				r.add(KindEmptyEntity, "connector", k.ID, "connector format is empty")
			}
			nonEmptyData(k.Data, r)
		}
	}

	for _, s := range d.Settings {
		if s.Name == "" {
			r.add(KindEmptyEntity, "setting", "", "setting name is empty")
		}
		if s.Kind == definition.SettingChoice && len(s.Choices) == 0 {
			r.add(KindEmptyEntity, "setting", s.Name, "choice setting has no choices")
		}
	}
}

func nonEmptyAction(a *definition.Action, r *report) {
	if a.ID == "" {
		r.add(KindEmptyEntity, "action", a.Name, "action id is empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		r.add(KindEmptyEntity, "action", a.ID, "action name is empty")
	}
	switch a.Type {
	case definition.ActionCommunicate:
	case definition.ActionExecute:
		if a.ExecutionCmd == "" {
			r.add(KindEmptyEntity, "action", a.ID, "execute action has no execution_cmd")
		}
	default:
		r.add(KindEmptyEntity, "action", a.ID, "unknown action type %q", a.Type)
	}
	if len(a.Lines.Action) == 0 && len(a.Lines.OnHold) == 0 {
		r.add(KindEmptyEntity, "action", a.ID, "action has no lines")
	}
	for _, set := range [][]definition.LingualLine{a.Lines.Action, a.Lines.OnHold} {
		for _, ll := range set {
			if len(ll.Data) == 0 {
				r.add(KindEmptyEntity, "action", a.ID, "language %q has no lines", ll.Language)
			}
			for _, l := range ll.Data {
				if strings.TrimSpace(l.LineFormat) == "" {
					r.add(KindEmptyEntity, "action", a.ID, "empty line in language %q", ll.Language)
				}
			}
		}
	}
	nonEmptyData(a.Data, r)
}

func nonEmptyData(fields []definition.Data, r *report) {
	for _, f := range fields {
		if f.ID == "" {
			r.add(KindEmptyEntity, "data", "", "data id is empty")
		}
		switch fm := f.Format.(type) {
		case nil:
			r.add(KindEmptyEntity, "data", f.ID, "data has no format")
		case definition.ChoiceData:
			if len(fm.Choices) == 0 {
				r.add(KindEmptyEntity, "data", f.ID, "choice data has no choices")
			}
		}
	}
}

// ids tracks one namespace of ids and reports repeats.
type ids struct {
	entity string
	seen   map[string]bool
	r      *report
}

func newIDs(entity string, r *report) *ids {
	return &ids{entity: entity, seen: make(map[string]bool), r: r}
}

func (s *ids) see(id, scope string) {
	if id == "" {
		return
	}
	if s.seen[id] {
		if scope == "" {
			s.r.add(KindDuplicateID, s.entity, id, "%s id is declared more than once", s.entity)
		} else {
			s.r.add(KindDuplicateID, s.entity, id, "%s id is declared more than once in %s", s.entity, scope)
		}
		return
	}
	s.seen[id] = true
}

func checkUniqueness(d *definition.Description, _ *registry, r *report) {
	categories := newIDs("category", r)
	actions := newIDs("action", r)
	events := newIDs("event", r)
	states := newIDs("state", r)
	connectors := newIDs("connector", r)
	settings := newIDs("setting", r)

	for ci := range d.Categories {
		c := &d.Categories[ci]
		categories.see(c.ID, "")

		subs := newIDs("subcategory", r)
		for _, sc := range c.SubCategories {
			subs.see(sc.ID, "category "+strconv.Quote(c.ID))
		}
		for _, a := range c.Actions {
			actions.see(a.ID, "")
			fields := newIDs("data", r)
			for _, f := range a.Data {
				fields.see(f.ID, "action "+strconv.Quote(a.ID))
			}
		}
		for _, e := range c.Events {
			events.see(e.ID, "")
			locals := newIDs("local state", r)
			for _, ls := range e.LocalStates {
				locals.see(ls.ID, "event "+strconv.Quote(e.ID))
			}
		}
		for _, s := range c.States {
			states.see(s.ID, "")
		}
		for _, k := range c.Connectors {
			connectors.see(k.ID, "")
			fields := newIDs("data", r)
			for _, f := range k.Data {
				fields.see(f.ID, "connector "+strconv.Quote(k.ID))
			}
		}
	}
	for _, s := range d.Settings {
		settings.see(s.Name, "")
	}
}

func checkLocalization(d *definition.Description, _ *registry, r *report) {
	for _, a := range d.Actions() {
		for _, set := range lineSets(a) {
			if len(set.lines) == 0 {
				continue
			}
			has := slices.ContainsFunc(set.lines, func(ll definition.LingualLine) bool {
				return ll.Language == definition.DefaultLanguage
			})
			if !has {
				r.add(KindMissingDefaultLanguage, "action", a.ID,
					"%s lines have no %q language", set.name, definition.DefaultLanguage)
			}
		}
	}
}

type lineSet struct {
	name  string
	lines []definition.LingualLine
}

func lineSets(a *definition.Action) []lineSet {
	return []lineSet{{"action", a.Lines.Action}, {"onhold", a.Lines.OnHold}}
}

func checkLines(d *definition.Description, _ *registry, r *report) {
	for _, a := range d.Actions() {
		known := make(map[string]bool, len(a.Data))
		for _, f := range a.Data {
			known[f.ID] = true
		}

		for _, set := range lineSets(a) {
			langs := make(map[string]bool)
			for _, ll := range set.lines {
				if langs[ll.Language] {
					r.add(KindLineLayout, "action", a.ID, "%s lines declare language %q twice", set.name, ll.Language)
				}
				langs[ll.Language] = true
				if len(ll.Data) > definition.MaxLinesPerLanguage {
					r.add(KindLineLayout, "action", a.ID, "%s lines for %q have %d lines, at most %d allowed",
						set.name, ll.Language, len(ll.Data), definition.MaxLinesPerLanguage)
				}
				for _, l := range ll.Data {
					for _, m := range placeholderRe.FindAllStringSubmatch(l.LineFormat, -1) {
						if !known[m[1]] {
							r.add(KindLineLayout, "action", a.ID, "line %q references unknown data %q", l.LineFormat, m[1])
						}
					}
				}
			}
		}

		// Every field must be reachable from every language of the press lines.
		for _, ll := range a.Lines.Action {
			for _, f := range a.Data {
				ph := definition.Placeholder(f.ID)
				found := slices.ContainsFunc(ll.Data, func(l definition.Line) bool {
					return strings.Contains(l.LineFormat, ph)
				})
				if !found {
					r.add(KindLineLayout, "action", a.ID, "%s not found in language %q", ph, ll.Language)
				}
			}
		}
	}
}

func checkReferences(d *definition.Description, _ *registry, r *report) {
	for ci := range d.Categories {
		c := &d.Categories[ci]
		subs := make(map[string]bool, len(c.SubCategories))
		for _, sc := range c.SubCategories {
			subs[sc.ID] = true
		}
		ref := func(entity, id, sub string) {
			if sub != "" && !subs[sub] {
				r.add(KindUnknownReference, entity, id, "subcategory %q is not declared in category %q", sub, c.ID)
			}
		}
		for _, a := range c.Actions {
			ref("action", a.ID, a.SubCategoryID)
		}
		for _, e := range c.Events {
			ref("event", e.ID, e.SubCategoryID)
		}
		for _, k := range c.Connectors {
			ref("connector", k.ID, k.SubCategoryID)
		}
	}
}

func checkDataIdentity(_ *definition.Description, reg *registry, r *report) {
	for _, id := range reg.fieldOrder {
		sites := reg.fields[id]
		first := sites[0]
		if first.data.Format == nil {
			continue
		}
		for _, s := range sites[1:] {
			if s.data.Format == nil || first.data.Format.SameShape(s.data.Format) {
				continue
			}
			r.add(KindInconsistentField, "data", id, "%s declares %s but %s declares %s",
				first.owner, definition.Describe(first.data.Format),
				s.owner, definition.Describe(s.data.Format))
		}
	}
}

func checkChoiceInitial(d *definition.Description, reg *registry, r *report) {
	for _, id := range reg.fieldOrder {
		for _, s := range reg.fields[id] {
			c, ok := s.data.Format.(definition.ChoiceData)
			if !ok || len(c.Choices) == 0 {
				continue
			}
			if !slices.Contains(c.Choices, c.Default) {
				r.add(KindInvalidInitialValue, "data", id, "%s: initial value %q is not among %q", s.owner, c.Default, c.Choices)
			}
		}
	}
	for _, s := range d.States() {
		if s.Kind == definition.StateChoice && len(s.Choices) > 0 && !slices.Contains(s.Choices, s.Default) {
			r.add(KindInvalidInitialValue, "state", s.ID, "initial value %q is not among %q", s.Default, s.Choices)
		}
	}
	for _, s := range d.Settings {
		if s.Kind == definition.SettingChoice && len(s.Choices) > 0 && !slices.Contains(s.Choices, s.Default) {
			r.add(KindInvalidInitialValue, "setting", s.Name, "default %q is not among %q", s.Default, s.Choices)
		}
	}
}

func checkNumericInitial(d *definition.Description, reg *registry, r *report) {
	inRange := func(entity, id, owner string, v float64, min, max *float64) {
		if min != nil && max != nil && *min > *max {
			r.add(KindOutOfRange, entity, id, "%sminimum %v is above maximum %v", owner, *min, *max)
			return
		}
		if (min != nil && v < *min) || (max != nil && v > *max) {
			r.add(KindOutOfRange, entity, id, "%sinitial value %v is outside [%s, %s]", owner, v, bound(min, "-inf"), bound(max, "+inf"))
		}
	}

	for _, id := range reg.fieldOrder {
		for _, s := range reg.fields[id] {
			owner := s.owner + ": "
			switch f := s.data.Format.(type) {
			case definition.NumberData:
				if !f.AllowDecimals && f.Default != math.Trunc(f.Default) {
					r.add(KindInvalidInitialValue, "data", id, "%sinitial value %v is not an integer", owner, f.Default)
				}
				inRange("data", id, owner, f.Default, f.Min, f.Max)
			case definition.BoundData:
				inRange("data", id, owner, float64(f.Default), intToFloat(f.Min), intToFloat(f.Max))
			}
		}
	}

	for _, s := range d.States() {
		if s.Kind != definition.StateNumber || s.Default == "" {
			continue
		}
		v, err := strconv.ParseFloat(s.Default, 64)
		if err != nil {
			r.add(KindInvalidInitialValue, "state", s.ID, "initial value %q is not a number", s.Default)
			continue
		}
		inRange("state", s.ID, "", v, s.Min, s.Max)
	}

	for _, s := range d.Settings {
		if s.Kind != definition.SettingNumber {
			continue
		}
		v, err := strconv.ParseFloat(s.Default, 64)
		if err != nil {
			r.add(KindInvalidInitialValue, "setting", s.Name, "default %q is not a number", s.Default)
			continue
		}
		inRange("setting", s.Name, "", v, s.Min, s.Max)
	}
}

func bound(p *float64, open string) string {
	if p == nil {
		return open
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func intToFloat(p *int64) *float64 {
	if p == nil {
		return nil
	}
	f := float64(*p)
	return &f
}

func checkEventStateKind(d *definition.Description, reg *registry, r *report) {
	for _, e := range d.Events() {
		if e.ValueStateID == "" {
			continue
		}
		s, ok := reg.states[e.ValueStateID]
		if !ok {
			r.add(KindUnknownReference, "event", e.ID, "references unknown state %q", e.ValueStateID)
			continue
		}
		switch {
		case e.ValueType == definition.EventChoice && s.Kind != definition.StateChoice:
			r.add(KindTypeMismatch, "event", e.ID, "is choice-typed but state %q is %s", s.ID, s.Kind)
		case e.ValueType == definition.EventText && s.Kind == definition.StateChoice:
			r.add(KindTypeMismatch, "event", e.ID, "is text-typed but state %q is choice", s.ID)
		case e.ValueType == definition.EventChoice && !sameSet(e.Choices, s.Choices):
			r.add(KindTypeMismatch, "event", e.ID, "choices %q differ from state %q choices %q", e.Choices, s.ID, s.Choices)
		}
	}
}

func sameSet(a, b []string) bool {
	as := make(map[string]bool, len(a))
	for _, v := range a {
		as[v] = true
	}
	bs := make(map[string]bool, len(b))
	for _, v := range b {
		if !as[v] {
			return false
		}
		bs[v] = true
	}
	return len(as) == len(bs)
}
