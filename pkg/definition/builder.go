package definition

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var hexColorRe = regexp.MustCompile(`^#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// staging accumulates setter rejections until Build.
type staging struct {
	entity string
	id     string
	errs   []error
}

func (s *staging) reject(field, format string, args ...any) {
	s.errs = append(s.errs, &FieldError{
		Entity: s.entity,
		ID:     s.id,
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
	})
}

func (s *staging) missing(field string) error {
	return &MissingFieldError{Entity: s.entity, ID: s.id, Field: field}
}

func (s *staging) adopt(err error) {
	if err != nil {
		s.errs = append(s.errs, err)
	}
}

func (s *staging) err() error {
	return errors.Join(s.errs...)
}

// DataBuilder stages a data field. Use the kind constructors (Text, Number, ...).
type DataBuilder struct {
	staging
	format DataFormat
}

func newData(id string, f DataFormat) *DataBuilder {
	return &DataBuilder{staging: staging{entity: "data", id: id}, format: f}
}

// Text starts a free text field.
func Text(id, initial string) *DataBuilder {
	return newData(id, TextData{Default: initial})
}

// Number starts a numeric field. Decimals are allowed unless Integer is called.
func Number(id string, initial float64) *DataBuilder {
	return newData(id, NumberData{Default: initial, AllowDecimals: true})
}

// Switch starts an on/off field.
func Switch(id string, initial bool) *DataBuilder {
	return newData(id, SwitchData{Default: initial})
}

// Choice starts a field restricted to choices.
func Choice(id, initial string, choices ...string) *DataBuilder {
	b := newData(id, ChoiceData{Default: initial, Choices: choices})
	if len(choices) == 0 {
		b.reject("valueChoices", "at least one choice is required")
	}
	return b
}

// File starts a file picker field.
func File(id, initial string, extensions ...string) *DataBuilder {
	b := newData(id, FileData{Default: initial, Extensions: extensions})
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, "*.") {
			b.reject("extensions", "extension %q must look like *.ext", ext)
		}
	}
	return b
}

// Folder starts a folder picker field.
func Folder(id, initial string) *DataBuilder {
	return newData(id, FolderData{Default: initial})
}

// Color starts a colour field; hex is #RRGGBB or #RRGGBBAA.
func Color(id, hex string) *DataBuilder {
	b := newData(id, ColorData{Default: hex})
	if !hexColorRe.MatchString(hex) {
		b.reject("default", "%q is not a #RRGGBB or #RRGGBBAA colour", hex)
	}
	return b
}

// LowerBound starts the lower bound field of a connector range.
func LowerBound(id string, initial int64) *DataBuilder {
	return newData(id, BoundData{Default: initial})
}

// UpperBound starts the upper bound field of a connector range.
func UpperBound(id string, initial int64) *DataBuilder {
	return newData(id, BoundData{Upper: true, Default: initial})
}

// Range constrains a number or bound field to [min, max].
func (b *DataBuilder) Range(min, max float64) *DataBuilder {
	if min > max {
		b.reject("minValue", "minimum %v is above maximum %v", min, max)
		return b
	}
	switch f := b.format.(type) {
	case NumberData:
		f.Min, f.Max = &min, &max
		b.format = f
	case BoundData:
		if min != math.Trunc(min) || max != math.Trunc(max) {
			b.reject("minValue", "bounds must be integers, got [%v, %v]", min, max)
			return b
		}
		lo, hi := int64(min), int64(max)
		f.Min, f.Max = &lo, &hi
		b.format = f
	default:
		b.reject("minValue", "%s fields have no range", b.format.Kind())
	}
	return b
}

// Integer forbids decimals on a number field.
func (b *DataBuilder) Integer() *DataBuilder {
	f, ok := b.format.(NumberData)
	if !ok {
		b.reject("allowDecimals", "%s fields have no decimals", b.format.Kind())
		return b
	}
	f.AllowDecimals = false
	b.format = f
	return b
}

// Build finalizes the field.
func (b *DataBuilder) Build() (Data, error) {
	if b.id == "" {
		return Data{}, b.missing("id")
	}
	if err := b.err(); err != nil {
		return Data{}, err
	}
	return Data{ID: b.id, Format: b.format}, nil
}

// ActionBuilder stages an action.
type ActionBuilder struct {
	staging
	a Action
}

// NewAction starts an action with its id and display name.
func NewAction(id, name string) *ActionBuilder {
	return &ActionBuilder{
		staging: staging{entity: "action", id: id},
		a:       Action{ID: id, Name: name},
	}
}

// Translate sets the display name for one of nl, de, es, fr, pt, tr.
func (b *ActionBuilder) Translate(lang, name string) *ActionBuilder {
	switch lang {
	case "nl":
		b.a.NL = name
	case "de":
		b.a.DE = name
	case "es":
		b.a.ES = name
	case "fr":
		b.a.FR = name
	case "pt":
		b.a.PT = name
	case "tr":
		b.a.TR = name
	default:
		b.reject("name_"+lang, "unsupported language %q", lang)
	}
	return b
}

// Execute makes the host run cmd itself instead of contacting the plugin.
func (b *ActionBuilder) Execute(cmd string) *ActionBuilder {
	b.a.Type = ActionExecute
	b.a.ExecutionCmd = cmd
	return b
}

// ExecuteWith is Execute with an explicit interpreter.
func (b *ActionBuilder) ExecuteWith(t ExecutionType, cmd string) *ActionBuilder {
	if t != ExecAppleScript && t != ExecBash {
		b.reject("execution_type", "unknown execution type %q", t)
		return b
	}
	b.a.ExecutionType = t
	return b.Execute(cmd)
}

// Communicate routes the action to the plugin.
func (b *ActionBuilder) Communicate() *ActionBuilder {
	b.a.Type = ActionCommunicate
	b.a.ExecutionCmd = ""
	b.a.ExecutionType = ""
	return b
}

// Datum adds a data field.
func (b *ActionBuilder) Datum(d *DataBuilder) *ActionBuilder {
	data, err := d.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.a.Data = append(b.a.Data, data)
	return b
}

// Line appends a default-language line.
func (b *ActionBuilder) Line(format string) *ActionBuilder {
	return b.LineIn(DefaultLanguage, format)
}

// LineIn appends a line for lang.
func (b *ActionBuilder) LineIn(lang, format string) *ActionBuilder {
	b.a.Lines.Action = b.addLine(b.a.Lines.Action, "lines.action", lang, format)
	return b
}

// HoldLine appends a default-language line shown while the button is held.
func (b *ActionBuilder) HoldLine(format string) *ActionBuilder {
	return b.HoldLineIn(DefaultLanguage, format)
}

// HoldLineIn appends a hold line for lang and marks the action hold-capable.
func (b *ActionBuilder) HoldLineIn(lang, format string) *ActionBuilder {
	b.a.Lines.OnHold = b.addLine(b.a.Lines.OnHold, "lines.onhold", lang, format)
	b.a.HasHoldFunctionality = true
	return b
}

func (b *ActionBuilder) addLine(set []LingualLine, field, lang, format string) []LingualLine {
	if lang == "" {
		lang = DefaultLanguage
	}
	for i := range set {
		if set[i].Language != lang {
			continue
		}
		if len(set[i].Data) >= MaxLinesPerLanguage {
			b.reject(field, "language %q already has %d lines", lang, MaxLinesPerLanguage)
			return set
		}
		set[i].Data = append(set[i].Data, Line{LineFormat: format})
		return set
	}
	return append(set, LingualLine{Language: lang, Data: []Line{{LineFormat: format}}})
}

// Suggest attaches layout hints to the action lines of lang.
func (b *ActionBuilder) Suggest(lang string, s Suggestions) *ActionBuilder {
	for i := range b.a.Lines.Action {
		if b.a.Lines.Action[i].Language == lang {
			b.a.Lines.Action[i].Suggestions = &s
			return b
		}
	}
	b.reject("suggestions", "no lines for language %q", lang)
	return b
}

// SubCategory places the action in a subcategory of its category.
func (b *ActionBuilder) SubCategory(id string) *ActionBuilder {
	b.a.SubCategoryID = id
	return b
}

// Build finalizes the action.
func (b *ActionBuilder) Build() (Action, error) {
	switch {
	case b.a.ID == "":
		return Action{}, b.missing("id")
	case b.a.Name == "":
		return Action{}, b.missing("name")
	case b.a.Type == "":
		return Action{}, b.missing("type")
	case b.a.Type == ActionExecute && b.a.ExecutionCmd == "":
		return Action{}, b.missing("execution_cmd")
	case len(b.a.Lines.Action) == 0 && len(b.a.Lines.OnHold) == 0:
		return Action{}, b.missing("lines")
	}
	if err := b.err(); err != nil {
		return Action{}, err
	}
	return b.a, nil
}

// EventBuilder stages an event.
type EventBuilder struct {
	staging
	e Event
}

// NewEvent starts an event with its id and display name.
func NewEvent(id, name string) *EventBuilder {
	return &EventBuilder{
		staging: staging{entity: "event", id: id},
		e:       Event{ID: id, Name: name},
	}
}

// Format sets the event sentence; $val marks the value, $compare the operator.
func (b *EventBuilder) Format(format string) *EventBuilder {
	if strings.Contains(format, "$compare") && !strings.Contains(format, "$val") {
		b.reject("format", "has $compare but no $val")
	}
	b.e.Format = format
	return b
}

// Choices makes the event compare against one of choices.
func (b *EventBuilder) Choices(choices ...string) *EventBuilder {
	if len(choices) == 0 {
		b.reject("valueChoices", "at least one choice is required")
	}
	b.e.ValueType = EventChoice
	b.e.Choices = choices
	b.e.CompareOptions = ""
	return b
}

// Text makes the event compare free text using compare.
func (b *EventBuilder) Text(compare CompareMethod) *EventBuilder {
	switch compare {
	case "", CompareNone, CompareChoice, CompareString, CompareNumber:
	default:
		b.reject("compareOptions", "unknown compare method %q", compare)
		return b
	}
	b.e.ValueType = EventText
	b.e.Choices = nil
	b.e.CompareOptions = compare
	return b
}

// State binds the event to a state's value.
func (b *EventBuilder) State(stateID string) *EventBuilder {
	b.e.ValueStateID = stateID
	return b
}

// LocalState declares a value supplied only when the event is triggered.
func (b *EventBuilder) LocalState(id, name string) *EventBuilder {
	if id == "" {
		b.reject("localstates", "local state id is empty")
		return b
	}
	b.e.LocalStates = append(b.e.LocalStates, LocalState{ID: id, Name: name})
	return b
}

// SubCategory places the event in a subcategory.
func (b *EventBuilder) SubCategory(id string) *EventBuilder {
	b.e.SubCategoryID = id
	return b
}

// Build finalizes the event.
func (b *EventBuilder) Build() (Event, error) {
	switch {
	case b.e.ID == "":
		return Event{}, b.missing("id")
	case b.e.Name == "":
		return Event{}, b.missing("name")
	case b.e.Format == "":
		return Event{}, b.missing("format")
	case b.e.ValueType == "":
		return Event{}, b.missing("valueType")
	}
	if err := b.err(); err != nil {
		return Event{}, err
	}
	return b.e, nil
}

// StateBuilder stages a state.
type StateBuilder struct {
	staging
	s State
}

// NewState starts a state.
func NewState(id string) *StateBuilder {
	return &StateBuilder{staging: staging{entity: "state", id: id}, s: State{ID: id}}
}

// Description sets the label shown in the host.
func (b *StateBuilder) Description(desc string) *StateBuilder {
	b.s.Description = desc
	return b
}

// Default sets the initial value.
func (b *StateBuilder) Default(value string) *StateBuilder {
	b.s.Default = value
	return b
}

// Text makes this a free text state.
func (b *StateBuilder) Text() *StateBuilder {
	b.s.Kind = StateText
	b.s.Choices = nil
	return b
}

// Choice makes this a state restricted to choices.
func (b *StateBuilder) Choice(choices ...string) *StateBuilder {
	if len(choices) == 0 {
		b.reject("valueChoices", "at least one choice is required")
	}
	b.s.Kind = StateChoice
	b.s.Choices = choices
	return b
}

// Number makes this a numeric state.
func (b *StateBuilder) Number() *StateBuilder {
	b.s.Kind = StateNumber
	b.s.Choices = nil
	return b
}

// Range constrains a numeric state.
func (b *StateBuilder) Range(min, max float64) *StateBuilder {
	if b.s.Kind != StateNumber {
		b.reject("minValue", "%q states have no range", b.s.Kind)
		return b
	}
	if min > max {
		b.reject("minValue", "minimum %v is above maximum %v", min, max)
		return b
	}
	b.s.Min, b.s.Max = &min, &max
	return b
}

// ParentGroup groups the state in the host's state picker.
func (b *StateBuilder) ParentGroup(group string) *StateBuilder {
	b.s.ParentGroup = group
	return b
}

// Build finalizes the state.
func (b *StateBuilder) Build() (State, error) {
	switch {
	case b.s.ID == "":
		return State{}, b.missing("id")
	case b.s.Description == "":
		return State{}, b.missing("desc")
	case b.s.Kind == "":
		return State{}, b.missing("type")
	}
	if err := b.err(); err != nil {
		return State{}, err
	}
	return b.s, nil
}

// ConnectorBuilder stages a connector.
type ConnectorBuilder struct {
	staging
	c Connector
}

// NewConnector starts a connector.
func NewConnector(id, name string) *ConnectorBuilder {
	return &ConnectorBuilder{
		staging: staging{entity: "connector", id: id},
		c:       Connector{ID: id, Name: name},
	}
}

// Format sets the connector sentence.
func (b *ConnectorBuilder) Format(format string) *ConnectorBuilder {
	b.c.Format = format
	return b
}

// Supports restricts the controls the connector binds to.
func (b *ConnectorBuilder) Supports(types ...ConnectorType) *ConnectorBuilder {
	for _, t := range types {
		if t != ConnectorDial && t != ConnectorSlider {
			b.reject("supportedTypes", "unknown connector type %q", t)
			continue
		}
		b.c.SupportedTypes = append(b.c.SupportedTypes, t)
	}
	return b
}

// Datum adds a data field.
func (b *ConnectorBuilder) Datum(d *DataBuilder) *ConnectorBuilder {
	data, err := d.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.c.Data = append(b.c.Data, data)
	return b
}

// SubCategory places the connector in a subcategory.
func (b *ConnectorBuilder) SubCategory(id string) *ConnectorBuilder {
	b.c.SubCategoryID = id
	return b
}

// Build finalizes the connector.
func (b *ConnectorBuilder) Build() (Connector, error) {
	switch {
	case b.c.ID == "":
		return Connector{}, b.missing("id")
	case b.c.Name == "":
		return Connector{}, b.missing("name")
	case b.c.Format == "":
		return Connector{}, b.missing("format")
	}
	if err := b.err(); err != nil {
		return Connector{}, err
	}
	return b.c, nil
}

// SettingBuilder stages a setting.
type SettingBuilder struct {
	staging
	s          Setting
	defaultSet bool
}

// NewSetting starts a setting; its name is also its id.
func NewSetting(name string) *SettingBuilder {
	return &SettingBuilder{staging: staging{entity: "setting", id: name}, s: Setting{Name: name}}
}

// Default sets the initial value in its wire form (On/Off for switches).
func (b *SettingBuilder) Default(value string) *SettingBuilder {
	b.s.Default = value
	b.defaultSet = true
	return b
}

func (b *SettingBuilder) kind(k SettingKind) *SettingBuilder {
	b.s.Kind = k
	return b
}

func (b *SettingBuilder) Text() *SettingBuilder      { return b.kind(SettingText) }
func (b *SettingBuilder) Number() *SettingBuilder    { return b.kind(SettingNumber) }
func (b *SettingBuilder) File() *SettingBuilder      { return b.kind(SettingFile) }
func (b *SettingBuilder) Folder() *SettingBuilder    { return b.kind(SettingFolder) }
func (b *SettingBuilder) Multiline() *SettingBuilder { return b.kind(SettingMultiline) }
func (b *SettingBuilder) Switch() *SettingBuilder    { return b.kind(SettingSwitch) }

// Choice makes the setting a drop-down of choices.
func (b *SettingBuilder) Choice(choices ...string) *SettingBuilder {
	if len(choices) == 0 {
		b.reject("choices", "at least one choice is required")
	}
	b.s.Choices = choices
	return b.kind(SettingChoice)
}

// MaxLength limits text, number and multiline settings.
func (b *SettingBuilder) MaxLength(n int) *SettingBuilder {
	if n <= 0 {
		b.reject("maxLength", "must be positive, got %d", n)
		return b
	}
	b.s.MaxLength = n
	return b
}

// Password masks the value in the host UI.
func (b *SettingBuilder) Password() *SettingBuilder {
	b.s.IsPassword = true
	return b
}

// ReadOnly makes the setting plugin-controlled.
func (b *SettingBuilder) ReadOnly() *SettingBuilder {
	b.s.ReadOnly = true
	return b
}

// Range constrains a number setting.
func (b *SettingBuilder) Range(min, max float64) *SettingBuilder {
	if min > max {
		b.reject("minValue", "minimum %v is above maximum %v", min, max)
		return b
	}
	b.s.Min, b.s.Max = &min, &max
	return b
}

// Tooltip attaches help text.
func (b *SettingBuilder) Tooltip(t Tooltip) *SettingBuilder {
	if t.Body == "" {
		b.reject("tooltip", "tooltip body is empty")
		return b
	}
	b.s.Tooltip = &t
	return b
}

// Build finalizes the setting.
func (b *SettingBuilder) Build() (Setting, error) {
	switch {
	case b.s.Name == "":
		return Setting{}, b.missing("name")
	case b.s.Kind == "":
		return Setting{}, b.missing("type")
	case !b.defaultSet:
		return Setting{}, b.missing("default")
	}

	switch b.s.Kind {
	case SettingSwitch:
		if b.s.Default != "On" && b.s.Default != "Off" {
			b.reject("default", "%q is not On or Off", b.s.Default)
		}
	case SettingNumber:
		if _, err := strconv.ParseFloat(b.s.Default, 64); err != nil {
			b.reject("default", "%q is not numeric", b.s.Default)
		}
	}
	if b.s.MaxLength > 0 {
		switch b.s.Kind {
		case SettingText, SettingNumber, SettingMultiline:
			if len(b.s.Default) > b.s.MaxLength {
				b.reject("default", "%q is longer than maxLength %d", b.s.Default, b.s.MaxLength)
			}
		default:
			b.reject("maxLength", "%s settings have no length limit", b.s.Kind)
		}
	}
	if (b.s.Min != nil || b.s.Max != nil) && b.s.Kind != SettingNumber {
		b.reject("minValue", "%s settings have no range", b.s.Kind)
	}

	if err := b.err(); err != nil {
		return Setting{}, err
	}
	return b.s, nil
}

// CategoryBuilder stages a category and its children.
type CategoryBuilder struct {
	staging
	c Category
}

// NewCategory starts a category.
func NewCategory(id, name string) *CategoryBuilder {
	return &CategoryBuilder{
		staging: staging{entity: "category", id: id},
		c:       Category{ID: id, Name: name},
	}
}

// Image sets the category icon path.
func (b *CategoryBuilder) Image(path string) *CategoryBuilder {
	b.c.ImagePath = path
	return b
}

// SubCategory declares a subcategory.
func (b *CategoryBuilder) SubCategory(id, name string) *CategoryBuilder {
	if id == "" || name == "" {
		b.reject("subCategories", "subcategory needs an id and a name")
		return b
	}
	b.c.SubCategories = append(b.c.SubCategories, SubCategory{ID: id, Name: name})
	return b
}

// Action adds an action.
func (b *CategoryBuilder) Action(a *ActionBuilder) *CategoryBuilder {
	built, err := a.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.c.Actions = append(b.c.Actions, built)
	return b
}

// Event adds an event.
func (b *CategoryBuilder) Event(e *EventBuilder) *CategoryBuilder {
	built, err := e.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.c.Events = append(b.c.Events, built)
	return b
}

// State adds a state.
func (b *CategoryBuilder) State(s *StateBuilder) *CategoryBuilder {
	built, err := s.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.c.States = append(b.c.States, built)
	return b
}

// Connector adds a connector.
func (b *CategoryBuilder) Connector(c *ConnectorBuilder) *CategoryBuilder {
	built, err := c.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.c.Connectors = append(b.c.Connectors, built)
	return b
}

// Build finalizes the category.
func (b *CategoryBuilder) Build() (Category, error) {
	switch {
	case b.c.ID == "":
		return Category{}, b.missing("id")
	case b.c.Name == "":
		return Category{}, b.missing("name")
	}
	if err := b.err(); err != nil {
		return Category{}, err
	}
	return b.c, nil
}

// DescriptionBuilder stages a whole plugin description.
type DescriptionBuilder struct {
	staging
	d          Description
	versionSet bool
}

// NewDescription starts a plugin description targeting API 4.3.
func NewDescription(id string) *DescriptionBuilder {
	return &DescriptionBuilder{
		staging: staging{entity: "plugin", id: id},
		d: Description{
			ID:         id,
			API:        APIV4_3,
			Categories: []Category{},
			Settings:   []Setting{},
		},
	}
}

// Name sets the plugin display name.
func (b *DescriptionBuilder) Name(name string) *DescriptionBuilder {
	b.d.Name = name
	return b
}

// Version sets the plugin's own version number.
func (b *DescriptionBuilder) Version(v int) *DescriptionBuilder {
	if v < 0 {
		b.reject("version", "must not be negative, got %d", v)
		return b
	}
	b.d.Version = v
	b.versionSet = true
	return b
}

// API overrides the targeted API version.
func (b *DescriptionBuilder) API(v APIVersion) *DescriptionBuilder {
	if v <= 0 {
		b.reject("api", "unknown API version %d", v)
		return b
	}
	b.d.API = v
	return b
}

// StartCmd sets the command the host runs to start the plugin.
func (b *DescriptionBuilder) StartCmd(cmd string) *DescriptionBuilder {
	b.d.StartCmd = cmd
	return b
}

// StartCmdFor sets the start command for one OS: windows, mac (or darwin), linux.
func (b *DescriptionBuilder) StartCmdFor(goos, cmd string) *DescriptionBuilder {
	switch goos {
	case "windows":
		b.d.StartCmdWindows = cmd
	case "mac", "darwin":
		b.d.StartCmdMac = cmd
	case "linux":
		b.d.StartCmdLinux = cmd
	default:
		b.reject("plugin_start_cmd_"+goos, "unsupported OS %q", goos)
	}
	return b
}

// Colors sets the dark and light theme colours.
func (b *DescriptionBuilder) Colors(dark, light string) *DescriptionBuilder {
	for field, c := range map[string]string{"colorDark": dark, "colorLight": light} {
		if c != "" && !hexColorRe.MatchString(c) {
			b.reject(field, "%q is not a hex colour", c)
			return b
		}
	}
	b.d.Configuration.ColorDark = dark
	b.d.Configuration.ColorLight = light
	return b
}

// ParentCategory places the plugin in a host group.
func (b *DescriptionBuilder) ParentCategory(p ParentCategory) *DescriptionBuilder {
	if !p.valid() {
		b.reject("parentCategory", "unknown parent category %q", p)
		return b
	}
	b.d.Configuration.ParentCategory = p
	return b
}

// Category adds a category.
func (b *DescriptionBuilder) Category(c *CategoryBuilder) *DescriptionBuilder {
	built, err := c.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.d.Categories = append(b.d.Categories, built)
	return b
}

// Setting adds a setting.
func (b *DescriptionBuilder) Setting(s *SettingBuilder) *DescriptionBuilder {
	built, err := s.Build()
	if err != nil {
		b.adopt(err)
		return b
	}
	b.d.Settings = append(b.d.Settings, built)
	return b
}

// SettingsDescription sets the text shown above the settings.
func (b *DescriptionBuilder) SettingsDescription(text string) *DescriptionBuilder {
	b.d.SettingsDescription = text
	return b
}

// Build finalizes the description. The result still has to pass validation.
func (b *DescriptionBuilder) Build() (*Description, error) {
	switch {
	case b.d.ID == "":
		return nil, b.missing("id")
	case b.d.Name == "":
		return nil, b.missing("name")
	case !b.versionSet:
		return nil, b.missing("version")
	case b.d.StartCmd == "":
		return nil, b.missing("plugin_start_cmd")
	}
	if err := b.err(); err != nil {
		return nil, err
	}
	d := b.d
	return &d, nil
}
