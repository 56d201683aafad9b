package codegen

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/prysmsh/tpsdk/pkg/definition"
	"github.com/prysmsh/tpsdk/pkg/protocol"
	"github.com/prysmsh/tpsdk/pkg/validate"
)

// file is everything the source template needs.
type file struct {
	Package  string
	Protocol string
	Session  string
	PluginID string

	Settings     []settingView
	Enums        []enumView
	Actions      []actionView
	Lists        []listView
	Connectors   []connectorView
	States       []stateView
	Events       []eventView
	ChoiceFields []choiceFieldView
	ChoiceArgs   bool
}

type enumView struct {
	Type   string
	Label  string
	Doc    string
	Values []enumValue
}

type enumValue struct {
	Const string
	Value string
}

type settingView struct {
	Name    string
	Field   string
	Setter  string
	GoType  string
	Default string
	Parse   string
	Format  string
}

type argView struct {
	ID     string
	Param  string
	GoType string
	Decode string
	Format string
}

type actionView struct {
	ID     string
	Name   string
	Method string
	Args   []argView
}

type listView struct {
	ActionID string
	DataID   string
	Method   string
	Enum     string
}

type connectorView struct {
	ID     string
	Name   string
	Method string
	Update string
	Args   []argView
}

type stateView struct {
	ID     string
	Method string
	GoType string
	Format string
}

type localView struct {
	ID    string
	Param string
}

type eventView struct {
	ID     string
	Method string
	Locals []localView
}

type choiceFieldView struct {
	ID     string
	Method string
}

// projector builds a file from a validated model, tracking Go names so
// that two ids can never silently share one.
type projector struct {
	m        *validate.Model
	pluginID string
	out      *file

	top     *scope
	handler *scope
	handle  *scope
	// enum type per choice data id
	fieldEnums map[string]string
}

func project(m *validate.Model, opts Options) (*file, error) {
	d := m.Description()
	p := &projector{
		m:        m,
		pluginID: d.ID,
		out: &file{
			Package:  opts.Package,
			Protocol: opts.SDKImport + "/pkg/protocol",
			Session:  opts.SDKImport + "/pkg/session",
			PluginID: d.ID,
		},
		top: newScope("identifier",
			"PluginID", "Settings", "DefaultSettings", "settingsFrom", "Handler", "Handle",
			"NewHandle", "NewDispatcher", "Run", "choiceArg"),
		handler: newScope("Handler method",
			"OnSettingsChanged", "OnBroadcast", "OnNotificationClicked", "OnClose"),
		handle:     newScope("Handle method", "Notify", "Session", "CreateState", "RemoveState"),
		fieldEnums: make(map[string]string),
	}
	steps := []func() error{p.settings, p.fieldChoices, p.states, p.actions, p.connectors, p.events}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return p.out, nil
}

// enum declares a string enum and its constants. Repeated choices are
// folded; distinct choices whose names collide get a numeric suffix.
func (p *projector) enum(typeName, prefix, label, doc string, choices []string, source string) (enumView, error) {
	if err := p.top.declare(typeName, source); err != nil {
		return enumView{}, err
	}
	if err := p.top.declare("Parse"+typeName, source); err != nil {
		return enumView{}, err
	}
	// Label ends up inside a format string.
	e := enumView{Type: typeName, Label: strings.ReplaceAll(label, "%", "%%"), Doc: doc}
	local := make(map[string]bool)
	var seen []string
	for _, c := range choices {
		if slices.Contains(seen, c) {
			continue
		}
		seen = append(seen, c)
		suffix := exportName(c)
		if suffix == "" {
			suffix = "Empty"
		}
		name := prefix + suffix
		for i := 2; local[name]; i++ {
			name = prefix + suffix + strconv.Itoa(i)
		}
		local[name] = true
		if err := p.top.declare(name, fmt.Sprintf("choice %q of %s", c, source)); err != nil {
			return enumView{}, err
		}
		e.Values = append(e.Values, enumValue{Const: name, Value: c})
	}
	if len(e.Values) == 0 {
		return enumView{}, fmt.Errorf("%w: %s has no choices", ErrProjection, source)
	}
	p.out.Enums = append(p.out.Enums, e)
	return e, nil
}

func constFor(e enumView, value string) (string, bool) {
	for _, v := range e.Values {
		if v.Value == value {
			return v.Const, true
		}
	}
	return "", false
}

func (p *projector) settings() error {
	fields := newScope("Settings field")
	for _, s := range p.m.Description().Settings {
		source := fmt.Sprintf("setting %q", s.Name)
		name := exportName(s.Name)
		if err := fields.declare(name, source); err != nil {
			return err
		}
		v := settingView{Name: s.Name, Field: name, Setter: "Set" + name}
		if err := p.handle.declare(v.Setter, source); err != nil {
			return err
		}
		switch s.Kind {
		case definition.SettingNumber:
			v.GoType, v.Parse, v.Format = "float64", "protocol.ParseNumber", "protocol.FormatNumber(value)"
			v.Default = "0"
			if s.Default != "" {
				f, err := protocol.ParseNumber(s.Default)
				if err != nil {
					return fmt.Errorf("%w: %s default: %v", ErrProjection, source, err)
				}
				v.Default = strconv.FormatFloat(f, 'g', -1, 64)
			}
		case definition.SettingSwitch:
			v.GoType, v.Parse, v.Format = "bool", "protocol.ParseSwitch", "protocol.FormatSwitch(value)"
			v.Default = "false"
			if s.Default != "" {
				on, err := protocol.ParseSwitch(s.Default)
				if err != nil {
					return fmt.Errorf("%w: %s default: %v", ErrProjection, source, err)
				}
				v.Default = strconv.FormatBool(on)
			}
		case definition.SettingChoice:
			e, err := p.enum(name+"Option", name, s.Name,
				fmt.Sprintf("lists the values of the %q setting", s.Name), s.Choices, source)
			if err != nil {
				return err
			}
			v.GoType, v.Parse, v.Format = e.Type, "Parse"+e.Type, "string(value)"
			v.Default = strconv.Quote("")
			if s.Default != "" {
				c, ok := constFor(e, s.Default)
				if !ok {
					return fmt.Errorf("%w: %s default %q is not a choice", ErrProjection, source, s.Default)
				}
				v.Default = c
			}
		default:
			v.GoType, v.Format = "string", "value"
			v.Default = strconv.Quote(s.Default)
		}
		p.out.Settings = append(p.out.Settings, v)
	}
	return nil
}

// fieldChoices emits one enum per distinct choice data id plus the
// choiceUpdate helpers for it.
func (p *projector) fieldChoices() error {
	for _, id := range p.m.FieldIDs() {
		f, _ := p.m.Field(id)
		c, ok := f.Format.(definition.ChoiceData)
		if !ok {
			continue
		}
		source := fmt.Sprintf("data %q", id)
		name := localName(p.pluginID, id)
		e, err := p.enum(name+"Choice", name, id,
			fmt.Sprintf("lists the values of the %q choice field", id), c.Choices, source)
		if err != nil {
			return err
		}
		p.fieldEnums[id] = e.Type
		cf := choiceFieldView{ID: id, Method: "UpdateChoicesIn" + name}
		if err := p.handle.declare(cf.Method, source); err != nil {
			return err
		}
		if err := p.handle.declare(cf.Method+"For", source); err != nil {
			return err
		}
		p.out.ChoiceFields = append(p.out.ChoiceFields, cf)
	}
	return nil
}

func (p *projector) states() error {
	for _, s := range p.m.Description().States() {
		source := fmt.Sprintf("state %q", s.ID)
		name := localName(p.pluginID, s.ID)
		v := stateView{ID: s.ID, Method: "Update" + name}
		if err := p.handle.declare(v.Method, source); err != nil {
			return err
		}
		switch s.Kind {
		case definition.StateNumber:
			v.GoType, v.Format = "float64", "protocol.FormatNumber(value)"
		case definition.StateChoice:
			e, err := p.enum(name+"Value", name, s.ID,
				fmt.Sprintf("lists the values of the %q state", s.ID), s.Choices, source)
			if err != nil {
				return err
			}
			v.GoType, v.Format = e.Type, "string(value)"
		default:
			v.GoType, v.Format = "string", "value"
		}
		p.out.States = append(p.out.States, v)
	}
	return nil
}

// args maps data fields to typed parameters, in declaration order.
func (p *projector) args(owner string, data []definition.Data) ([]argView, error) {
	params := newScope("parameter of " + owner)
	var out []argView
	for _, d := range data {
		source := fmt.Sprintf("data %q of %s", d.ID, owner)
		a := argView{ID: d.ID, Param: paramName(localName(p.pluginID, d.ID))}
		if err := params.declare(a.Param, source); err != nil {
			return nil, err
		}
		q := strconv.Quote(d.ID)
		switch d.Format.(type) {
		case definition.NumberData:
			a.GoType, a.Decode, a.Format = "float64", "args.Number("+q+")", "protocol.FormatNumber("+a.Param+")"
		case definition.SwitchData:
			a.GoType, a.Decode, a.Format = "bool", "args.Switch("+q+")", "protocol.FormatSwitch("+a.Param+")"
		case definition.BoundData:
			a.GoType, a.Decode, a.Format = "int64", "args.Int("+q+")", "strconv.FormatInt("+a.Param+", 10)"
		case definition.ChoiceData:
			enum, ok := p.fieldEnums[d.ID]
			if !ok {
				return nil, fmt.Errorf("%w: %s has no enum", ErrProjection, source)
			}
			a.GoType, a.Decode, a.Format = enum, "choiceArg(args, "+q+", Parse"+enum+")", "string("+a.Param+")"
			p.out.ChoiceArgs = true
		case nil:
			return nil, fmt.Errorf("%w: %s has no format", ErrProjection, source)
		default:
			a.GoType, a.Decode, a.Format = "string", "args.Text("+q+")", a.Param
		}
		out = append(out, a)
	}
	return out, nil
}

func (p *projector) actions() error {
	for _, a := range p.m.Description().Actions() {
		if a.Type != definition.ActionCommunicate {
			continue
		}
		source := fmt.Sprintf("action %q", a.ID)
		name := localName(p.pluginID, a.ID)
		v := actionView{ID: a.ID, Name: a.Name, Method: "On" + name}
		if err := p.handler.declare(v.Method, source); err != nil {
			return err
		}
		args, err := p.args(source, a.Data)
		if err != nil {
			return err
		}
		v.Args = args
		p.out.Actions = append(p.out.Actions, v)

		for _, d := range a.Data {
			if _, ok := d.Format.(definition.ChoiceData); !ok {
				continue
			}
			l := listView{
				ActionID: a.ID,
				DataID:   d.ID,
				Method:   "OnSelect" + localName(p.pluginID, d.ID) + "In" + name,
				Enum:     p.fieldEnums[d.ID],
			}
			if err := p.handler.declare(l.Method, fmt.Sprintf("data %q of %s", d.ID, source)); err != nil {
				return err
			}
			p.out.Lists = append(p.out.Lists, l)
		}
	}
	return nil
}

func (p *projector) connectors() error {
	for _, c := range p.m.Description().Connectors() {
		source := fmt.Sprintf("connector %q", c.ID)
		name := localName(p.pluginID, c.ID)
		v := connectorView{ID: c.ID, Name: c.Name, Method: "On" + name + "Change", Update: "Update" + name}
		if err := p.handler.declare(v.Method, source); err != nil {
			return err
		}
		if err := p.handle.declare(v.Update, source); err != nil {
			return err
		}
		args, err := p.args(source, c.Data)
		if err != nil {
			return err
		}
		v.Args = args
		p.out.Connectors = append(p.out.Connectors, v)
	}
	return nil
}

func (p *projector) events() error {
	for _, e := range p.m.Description().Events() {
		source := fmt.Sprintf("event %q", e.ID)
		v := eventView{ID: e.ID, Method: "Trigger" + localName(p.pluginID, e.ID)}
		if err := p.handle.declare(v.Method, source); err != nil {
			return err
		}
		params := newScope("parameter of " + source)
		for _, l := range e.LocalStates {
			lv := localView{ID: l.ID, Param: paramName(localName(p.pluginID, l.ID))}
			if err := params.declare(lv.Param, fmt.Sprintf("local state %q of %s", l.ID, source)); err != nil {
				return err
			}
			v.Locals = append(v.Locals, lv)
		}
		p.out.Events = append(p.out.Events, v)
	}
	return nil
}
