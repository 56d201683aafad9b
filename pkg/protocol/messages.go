package protocol

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Message is a message sent from the host to the plugin.
type Message interface {
	MessageType() string
}

// InteractionMode is the phase in which an action was invoked.
type InteractionMode int

const (
	// Execute is a plain button press.
	Execute InteractionMode = iota
	// HoldDown is sent when a hold-capable button is pressed down.
	HoldDown
	// HoldUp is sent when it is released.
	HoldUp
)

func (m InteractionMode) String() string {
	switch m {
	case Execute:
		return "execute"
	case HoldDown:
		return "hold-down"
	case HoldUp:
		return "hold-up"
	}
	return fmt.Sprintf("InteractionMode(%d)", int(m))
}

func (m InteractionMode) wireType() string {
	switch m {
	case HoldDown:
		return "down"
	case HoldUp:
		return "up"
	}
	return "action"
}

// IDValue is one resolved data field of an action or connector.
type IDValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// SettingValues maps setting names to their current values. On the wire it
// is a list of single-key objects.
type SettingValues map[string]string

func (s SettingValues) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]map[string]string, 0, len(s))
	for _, n := range names {
		out = append(out, map[string]string{n: s[n]})
	}
	return json.Marshal(out)
}

func (s *SettingValues) UnmarshalJSON(b []byte) error {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m := make(SettingValues, len(raw))
	for _, entry := range raw {
		for k, v := range entry {
			var str string
			if err := json.Unmarshal(v, &str); err != nil {
				// Non-string values are kept in their JSON form.
				str = string(v)
			}
			m[k] = str
		}
	}
	*s = m
	return nil
}

// Info is the host's reply to Pair; it is always the first message.
type Info struct {
	SDKVersion                      int           `json:"sdkVersion"`
	TPVersionString                 string        `json:"tpVersionString"`
	TPVersionCode                   int           `json:"tpVersionCode"`
	PluginVersion                   int           `json:"pluginVersion,omitempty"`
	Settings                        SettingValues `json:"settings"`
	CurrentPagePathMainDevice       string        `json:"currentPagePathMainDevice,omitempty"`
	CurrentPagePathSecondaryDevices []DevicePage  `json:"currentPagePathSecondaryDevices,omitempty"`
}

// DevicePage is the page a secondary device currently shows.
type DevicePage struct {
	DeviceID        string `json:"tpDeviceId"`
	CurrentPagePath string `json:"currentPagePath"`
	DeviceName      string `json:"deviceName"`
}

// Action invokes an action. Mode comes from the message type
// (action, down or up).
type Action struct {
	Mode     InteractionMode `json:"-"`
	PluginID string          `json:"pluginId"`
	ActionID string          `json:"actionId"`
	Data     []IDValue       `json:"data"`
}

// ConnectorChange reports a slider movement.
type ConnectorChange struct {
	PluginID     string    `json:"pluginId"`
	ConnectorID  string    `json:"connectorId"`
	Value        int       `json:"value"`
	ValueDecimal float64   `json:"valueDecimal,omitempty"`
	Data         []IDValue `json:"data"`
}

// ShortConnectorID tells the plugin the short id assigned to a long
// connector id.
type ShortConnectorID struct {
	PluginID    string `json:"pluginId"`
	ShortID     string `json:"shortId"`
	ConnectorID string `json:"connectorId"`
}

// ListChange reports the user picking a value in a choice field while
// editing an action.
type ListChange struct {
	PluginID   string    `json:"pluginId"`
	ActionID   string    `json:"actionId"`
	ListID     string    `json:"listId"`
	InstanceID string    `json:"instanceId"`
	Value      string    `json:"value"`
	Values     []IDValue `json:"values,omitempty"`
}

// ClosePlugin is the last message of every session.
type ClosePlugin struct {
	PluginID string `json:"pluginId"`
}

// Broadcast is a host-wide event. Only pageChange is sent today.
type Broadcast struct {
	Event            string `json:"event"`
	PageName         string `json:"pageName"`
	PreviousPageName string `json:"previousPageName,omitempty"`
	DeviceIP         string `json:"deviceIp,omitempty"`
	DeviceName       string `json:"deviceName,omitempty"`
	DeviceID         string `json:"deviceId,omitempty"`
}

// NotificationClicked reports a click on a notification option.
type NotificationClicked struct {
	NotificationID string `json:"notificationId"`
	OptionID       string `json:"optionId"`
}

// Settings carries settings the user changed in the host.
type Settings struct {
	Values SettingValues `json:"values"`
}

// UnknownMessage is a message type this package does not model.
type UnknownMessage struct {
	Type string
	Raw  json.RawMessage
}

func (Info) MessageType() string                { return "info" }
func (a Action) MessageType() string            { return a.Mode.wireType() }
func (ConnectorChange) MessageType() string     { return "connectorChange" }
func (ShortConnectorID) MessageType() string    { return "shortConnectorIdNotification" }
func (ListChange) MessageType() string          { return "listChange" }
func (ClosePlugin) MessageType() string         { return "closePlugin" }
func (Broadcast) MessageType() string           { return "broadcast" }
func (NotificationClicked) MessageType() string { return "notificationOptionClicked" }
func (Settings) MessageType() string            { return "settings" }
func (u UnknownMessage) MessageType() string    { return u.Type }

// EncodeMessage renders m as one JSON line body with its type tag.
func EncodeMessage(m Message) ([]byte, error) {
	if u, ok := m.(UnknownMessage); ok {
		return u.Raw, nil
	}
	return withType(m.MessageType(), m)
}

// DecodeMessage parses one line written by the host.
func DecodeMessage(line []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch env.Type {
	case "info":
		return decodeAs[Info](env.Type, line)
	case "action", "down", "up":
		var a Action
		if err := json.Unmarshal(line, &a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		switch env.Type {
		case "down":
			a.Mode = HoldDown
		case "up":
			a.Mode = HoldUp
		}
		return a, nil
	case "connectorChange":
		return decodeAs[ConnectorChange](env.Type, line)
	case "shortConnectorIdNotification":
		return decodeAs[ShortConnectorID](env.Type, line)
	case "listChange":
		return decodeAs[ListChange](env.Type, line)
	case "closePlugin":
		return decodeAs[ClosePlugin](env.Type, line)
	case "broadcast":
		return decodeAs[Broadcast](env.Type, line)
	case "notificationOptionClicked":
		return decodeAs[NotificationClicked](env.Type, line)
	case "settings":
		return decodeAs[Settings](env.Type, line)
	}
	return UnknownMessage{Type: env.Type, Raw: append(json.RawMessage(nil), line...)}, nil
}

func decodeAs[T Message](typ string, line []byte) (Message, error) {
	var v T
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", typ, err)
	}
	return v, nil
}
