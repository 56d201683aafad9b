package definition

import "encoding/json"

// DefaultLanguage is the fallback language every line set must contain.
const DefaultLanguage = "default"

// MaxLinesPerLanguage is the number of lines the host renders legibly on
// small screens.
const MaxLinesPerLanguage = 8

// ActionType selects how the host executes an action.
type ActionType string

const (
	// ActionExecute runs ExecutionCmd on the host machine.
	ActionExecute ActionType = "execute"
	// ActionCommunicate forwards the action to the plugin over the socket.
	ActionCommunicate ActionType = "communicate"
)

// ExecutionType is the interpreter of an execute action on macOS.
type ExecutionType string

const (
	ExecAppleScript ExecutionType = "AppleScript"
	ExecBash        ExecutionType = "Bash"
)

// Translations are the localized display names of an action.
type Translations struct {
	NL string `json:"name_nl,omitempty"`
	DE string `json:"name_de,omitempty"`
	ES string `json:"name_es,omitempty"`
	FR string `json:"name_fr,omitempty"`
	PT string `json:"name_pt,omitempty"`
	TR string `json:"name_tr,omitempty"`
}

// Action is a button action the host can send to the plugin.
type Action struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Translations
	Type                 ActionType    `json:"type"`
	ExecutionType        ExecutionType `json:"execution_type,omitempty"`
	ExecutionCmd         string        `json:"execution_cmd,omitempty"`
	Data                 []Data        `json:"data,omitempty"`
	Lines                Lines         `json:"lines"`
	HasHoldFunctionality bool          `json:"hasHoldFunctionality,omitempty"`
	SubCategoryID        string        `json:"subCategoryId,omitempty"`
}

// Placeholder returns the line-format placeholder for a data id.
func Placeholder(dataID string) string {
	return "{$" + dataID + "$}"
}

// Lines holds the per-language templates for the press and hold phases.
type Lines struct {
	Action []LingualLine `json:"action,omitempty"`
	OnHold []LingualLine `json:"onhold,omitempty"`
}

// LingualLine is the template of one language.
type LingualLine struct {
	Language    string       `json:"language"`
	Data        []Line       `json:"data"`
	Suggestions *Suggestions `json:"suggestions,omitempty"`
}

// Line is one rendered line; it interleaves literal text with placeholders.
type Line struct {
	LineFormat string `json:"lineFormat"`
}

// Suggestions are layout hints for the host.
type Suggestions struct {
	FirstLineItemLabelWidth int `json:"firstLineItemLabelWidth,omitempty"`
	LineIndentation         int `json:"lineIndentation,omitempty"`
}

// StateKind is the value type of a state.
type StateKind string

const (
	StateText   StateKind = "text"
	StateChoice StateKind = "choice"
	StateNumber StateKind = "number"
)

// State is a value the plugin publishes to the host.
type State struct {
	ID          string    `json:"id"`
	Kind        StateKind `json:"type"`
	Description string    `json:"desc"`
	Default     string    `json:"default"`
	Choices     []string  `json:"valueChoices,omitempty"`
	Min         *float64  `json:"minValue,omitempty"`
	Max         *float64  `json:"maxValue,omitempty"`
	ParentGroup string    `json:"parentGroup,omitempty"`
}

// EventValueType is the value type an event compares against.
type EventValueType string

const (
	EventChoice EventValueType = "choice"
	EventText   EventValueType = "text"
)

// CompareMethod is the comparison offered for text events.
type CompareMethod string

const (
	CompareNone   CompareMethod = "none"
	CompareChoice CompareMethod = "choice"
	CompareString CompareMethod = "string"
	CompareNumber CompareMethod = "number"
)

// Event is a condition the host evaluates, either against a state value or
// against local states supplied when the plugin triggers it.
type Event struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Format         string         `json:"format"`
	ValueType      EventValueType `json:"valueType"`
	Choices        []string       `json:"valueChoices,omitempty"`
	CompareOptions CompareMethod  `json:"compareOptions,omitempty"`
	ValueStateID   string         `json:"valueStateId"`
	SubCategoryID  string         `json:"subCategoryId,omitempty"`
	LocalStates    []LocalState   `json:"localstates,omitempty"`
}

// MarshalJSON adds the fixed "communicate" type the host expects.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	return json.Marshal(struct {
		alias
		Type string `json:"type"`
	}{alias(e), "communicate"})
}

// LocalState is an event-scoped value delivered when the event fires.
type LocalState struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	ParentCategory ParentCategory `json:"parentCategory,omitempty"`
}

// ConnectorType is the kind of control a connector binds to.
type ConnectorType string

const (
	ConnectorDial   ConnectorType = "dial"
	ConnectorSlider ConnectorType = "slider"
)

// Connector is the slider-linked analogue of an action.
type Connector struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Format         string          `json:"format"`
	SupportedTypes []ConnectorType `json:"supportedTypes,omitempty"`
	Data           []Data          `json:"data,omitempty"`
	SubCategoryID  string          `json:"subCategoryId,omitempty"`
}

// SettingKind is the editor the host shows for a setting.
type SettingKind string

const (
	SettingText      SettingKind = "text"
	SettingNumber    SettingKind = "number"
	SettingFile      SettingKind = "file"
	SettingFolder    SettingKind = "folder"
	SettingMultiline SettingKind = "multiline"
	SettingSwitch    SettingKind = "switch"
	SettingChoice    SettingKind = "choice"
)

// Setting is a user-editable value the host may persist across restarts.
type Setting struct {
	Name       string      `json:"name"`
	Default    string      `json:"default"`
	Kind       SettingKind `json:"type"`
	MaxLength  int         `json:"maxLength,omitempty"`
	IsPassword bool        `json:"isPassword,omitempty"`
	ReadOnly   bool        `json:"readOnly,omitempty"`
	Min        *float64    `json:"minValue,omitempty"`
	Max        *float64    `json:"maxValue,omitempty"`
	Choices    []string    `json:"choices,omitempty"`
	Tooltip    *Tooltip    `json:"tooltip,omitempty"`
}

// Tooltip is the help bubble next to a setting.
type Tooltip struct {
	Title  string `json:"title,omitempty"`
	Body   string `json:"body"`
	DocURL string `json:"docUrl,omitempty"`
}
