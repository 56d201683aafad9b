// Package protocol defines the newline-delimited JSON vocabulary spoken
// between a Touch Portal plugin and its host.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultAddr is where the host listens for plugins.
const DefaultAddr = "127.0.0.1:12136"

// Command is a message sent from the plugin to the host.
type Command interface {
	CommandType() string
}

// Pair identifies the plugin right after connecting.
type Pair struct {
	ID string `json:"id"`
}

// StateUpdate sets the value of a state.
type StateUpdate struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// CreateState declares a state at run time.
type CreateState struct {
	ID           string `json:"id"`
	Description  string `json:"desc"`
	DefaultValue string `json:"defaultValue"`
	ParentGroup  string `json:"parentGroup,omitempty"`
	ForceUpdate  bool   `json:"forceUpdate,omitempty"`
}

// RemoveState deletes a state created at run time.
type RemoveState struct {
	ID string `json:"id"`
}

// TriggerEvent fires an event, optionally with local state values.
type TriggerEvent struct {
	EventID string            `json:"eventId"`
	States  map[string]string `json:"states,omitempty"`
}

// ConnectorUpdate moves a connector's slider. Exactly one of ConnectorID
// and ShortID is set.
type ConnectorUpdate struct {
	ConnectorID string `json:"connectorId,omitempty"`
	ShortID     string `json:"shortId,omitempty"`
	Value       int    `json:"value"`
}

// ShowNotification raises a notification in the host.
type ShowNotification struct {
	NotificationID string               `json:"notificationId"`
	Title          string               `json:"title"`
	Message        string               `json:"msg"`
	Options        []NotificationOption `json:"options"`
}

// NotificationOption is a clickable option of a notification.
type NotificationOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SettingUpdate changes a host-persisted setting.
type SettingUpdate struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ChoiceUpdate replaces the choices of a choice data field, for every
// instance or only the one named by InstanceID.
type ChoiceUpdate struct {
	ID         string   `json:"id"`
	Value      []string `json:"value"`
	InstanceID string   `json:"instanceId,omitempty"`
}

func (Pair) CommandType() string             { return "pair" }
func (StateUpdate) CommandType() string      { return "stateUpdate" }
func (CreateState) CommandType() string      { return "createState" }
func (RemoveState) CommandType() string      { return "removeState" }
func (TriggerEvent) CommandType() string     { return "triggerEvent" }
func (ConnectorUpdate) CommandType() string  { return "connectorUpdate" }
func (ShowNotification) CommandType() string { return "showNotification" }
func (SettingUpdate) CommandType() string    { return "settingUpdate" }
func (ChoiceUpdate) CommandType() string     { return "choiceUpdate" }

// UnknownCommand is a command type this package does not model.
type UnknownCommand struct {
	Type string
	Raw  json.RawMessage
}

func (u UnknownCommand) CommandType() string { return u.Type }

// Encode renders c as one JSON object with its type tag, without the
// trailing newline.
func Encode(c Command) ([]byte, error) {
	if u, ok := c.(UnknownCommand); ok {
		return u.Raw, nil
	}
	return withType(c.CommandType(), c)
}

func withType(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: not an object", typ)
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + len(typ) + 12)
	buf.WriteString(`{"type":`)
	buf.WriteString(strconv.Quote(typ))
	if len(body) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeCommand parses one line written by a plugin. Unknown types decode to
// UnknownCommand rather than failing.
func DecodeCommand(line []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}

	var c Command
	switch env.Type {
	case "pair":
		c = &Pair{}
	case "stateUpdate":
		c = &StateUpdate{}
	case "createState":
		c = &CreateState{}
	case "removeState":
		c = &RemoveState{}
	case "triggerEvent":
		c = &TriggerEvent{}
	case "connectorUpdate":
		c = &ConnectorUpdate{}
	case "showNotification":
		c = &ShowNotification{}
	case "settingUpdate":
		c = &SettingUpdate{}
	case "choiceUpdate":
		c = &ChoiceUpdate{}
	default:
		return UnknownCommand{Type: env.Type, Raw: append(json.RawMessage(nil), line...)}, nil
	}
	if err := json.Unmarshal(line, c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return deref(c), nil
}

// deref hands out commands by value so callers can type-switch on the
// same types they send.
func deref(c Command) Command {
	switch v := c.(type) {
	case *Pair:
		return *v
	case *StateUpdate:
		return *v
	case *CreateState:
		return *v
	case *RemoveState:
		return *v
	case *TriggerEvent:
		return *v
	case *ConnectorUpdate:
		return *v
	case *ShowNotification:
		return *v
	case *SettingUpdate:
		return *v
	case *ChoiceUpdate:
		return *v
	}
	return c
}
