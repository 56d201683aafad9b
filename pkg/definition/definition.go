// Package definition holds the in-memory model of a Touch Portal plugin's
// interface (its categories, actions, events, states, connectors and settings)
// together with the staged builders used to assemble it.
//
// A Description is pure data. Cross-entity consistency is checked by the
// validate package; the builders here only enforce per-field constraints.
package definition

import (
	"encoding/json"
	"fmt"
)

// APIVersion is the numeric Touch Portal API version a plugin targets.
type APIVersion int

const (
	APIV2_1    APIVersion = 1
	APIV2_2    APIVersion = 2
	APIV2_3    APIVersion = 3
	APIV3_0    APIVersion = 4
	APIV3_0_6  APIVersion = 5
	APIV3_0_11 APIVersion = 6
	APIV4_0    APIVersion = 7
	APIV4_1    APIVersion = 8
	APIV4_2    APIVersion = 9
	APIV4_3    APIVersion = 10
	APIV4_5    APIVersion = 12
)

// ParentCategory places the plugin inside one of the host's top-level groups.
type ParentCategory string

const (
	ParentAudio          ParentCategory = "audio"
	ParentStreaming      ParentCategory = "streaming"
	ParentContent        ParentCategory = "content"
	ParentHomeAutomation ParentCategory = "homeautomation"
	ParentSocial         ParentCategory = "social"
	ParentGames          ParentCategory = "games"
	ParentMisc           ParentCategory = "misc"
	ParentConferencing   ParentCategory = "conferencing"
	ParentOffice         ParentCategory = "office"
	ParentSystem         ParentCategory = "system"
	ParentTools          ParentCategory = "tools"
	ParentTransport      ParentCategory = "transport"
	ParentInput          ParentCategory = "input"
)

func (p ParentCategory) valid() bool {
	switch p {
	case ParentAudio, ParentStreaming, ParentContent, ParentHomeAutomation, ParentSocial,
		ParentGames, ParentMisc, ParentConferencing, ParentOffice, ParentSystem,
		ParentTools, ParentTransport, ParentInput:
		return true
	}
	return false
}

// Configuration is the visual configuration block of the description document.
type Configuration struct {
	ColorDark      string         `json:"colorDark,omitempty"`
	ColorLight     string         `json:"colorLight,omitempty"`
	ParentCategory ParentCategory `json:"parentCategory,omitempty"`
}

// Description is the root of a plugin definition. It owns everything below it.
type Description struct {
	API                 APIVersion    `json:"api"`
	Version             int           `json:"version"`
	Name                string        `json:"name"`
	ID                  string        `json:"id"`
	Configuration       Configuration `json:"configuration"`
	StartCmd            string        `json:"plugin_start_cmd"`
	StartCmdWindows     string        `json:"plugin_start_cmd_windows,omitempty"`
	StartCmdMac         string        `json:"plugin_start_cmd_mac,omitempty"`
	StartCmdLinux       string        `json:"plugin_start_cmd_linux,omitempty"`
	Categories          []Category    `json:"categories"`
	Settings            []Setting     `json:"settings"`
	SettingsDescription string        `json:"settingsDescription,omitempty"`
}

// MarshalJSON writes empty collections as [] rather than null; the host
// rejects a null categories or settings list.
func (d Description) MarshalJSON() ([]byte, error) {
	type alias Description
	a := alias(d)
	if a.Categories == nil {
		a.Categories = []Category{}
	}
	if a.Settings == nil {
		a.Settings = []Setting{}
	}
	return json.Marshal(a)
}

// Actions returns every action of the plugin in declaration order.
func (d *Description) Actions() []*Action {
	var out []*Action
	for ci := range d.Categories {
		for ai := range d.Categories[ci].Actions {
			out = append(out, &d.Categories[ci].Actions[ai])
		}
	}
	return out
}

// Events returns every event of the plugin in declaration order.
func (d *Description) Events() []*Event {
	var out []*Event
	for ci := range d.Categories {
		for ei := range d.Categories[ci].Events {
			out = append(out, &d.Categories[ci].Events[ei])
		}
	}
	return out
}

// States returns every state of the plugin in declaration order.
func (d *Description) States() []*State {
	var out []*State
	for ci := range d.Categories {
		for si := range d.Categories[ci].States {
			out = append(out, &d.Categories[ci].States[si])
		}
	}
	return out
}

// Connectors returns every connector of the plugin in declaration order.
func (d *Description) Connectors() []*Connector {
	var out []*Connector
	for ci := range d.Categories {
		for ki := range d.Categories[ci].Connectors {
			out = append(out, &d.Categories[ci].Connectors[ki])
		}
	}
	return out
}

// Category groups entities as one action category in the host UI.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	ImagePath     string        `json:"imagepath,omitempty"`
	Actions       []Action      `json:"actions"`
	Events        []Event       `json:"events"`
	Connectors    []Connector   `json:"connectors"`
	States        []State       `json:"states"`
	SubCategories []SubCategory `json:"subCategories,omitempty"`
}

// MarshalJSON always emits the four entity lists, empty or not.
func (c Category) MarshalJSON() ([]byte, error) {
	type alias Category
	a := alias(c)
	if a.Actions == nil {
		a.Actions = []Action{}
	}
	if a.Events == nil {
		a.Events = []Event{}
	}
	if a.Connectors == nil {
		a.Connectors = []Connector{}
	}
	if a.States == nil {
		a.States = []State{}
	}
	return json.Marshal(a)
}

// Len reports the number of child entities in the category.
func (c *Category) Len() int {
	return len(c.Actions) + len(c.Events) + len(c.Connectors) + len(c.States)
}

// SubCategory is a named grouping inside a category.
type SubCategory struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImagePath string `json:"imagepath,omitempty"`
}

// Parse decodes a description document (entry.tp).
func Parse(data []byte) (*Description, error) {
	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse description: %w", err)
	}
	return &d, nil
}
