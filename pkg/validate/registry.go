package validate

import (
	"strconv"

	"github.com/prysmsh/tpsdk/pkg/definition"
)

// fieldSite is one occurrence of a data id.
type fieldSite struct {
	owner string // "action \"x\"" or "connector \"y\""
	data  definition.Data
}

// registry maps plugin-wide ids to their definitions. It is built once per
// Validate call and only read by the rules.
type registry struct {
	fields     map[string][]fieldSite
	fieldOrder []string
	states     map[string]*definition.State
}

func newRegistry(d *definition.Description) *registry {
	reg := &registry{
		fields: make(map[string][]fieldSite),
		states: make(map[string]*definition.State),
	}
	add := func(owner string, data []definition.Data) {
		for _, f := range data {
			if _, seen := reg.fields[f.ID]; !seen {
				reg.fieldOrder = append(reg.fieldOrder, f.ID)
			}
			reg.fields[f.ID] = append(reg.fields[f.ID], fieldSite{owner: owner, data: f})
		}
	}
	for _, a := range d.Actions() {
		add("action "+strconv.Quote(a.ID), a.Data)
	}
	for _, c := range d.Connectors() {
		add("connector "+strconv.Quote(c.ID), c.Data)
	}
	for _, s := range d.States() {
		if _, dup := reg.states[s.ID]; !dup {
			reg.states[s.ID] = s
		}
	}
	return reg
}
