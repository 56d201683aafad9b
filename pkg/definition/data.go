package definition

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// DataKind is the input type of a data field.
type DataKind string

const (
	KindText       DataKind = "text"
	KindNumber     DataKind = "number"
	KindSwitch     DataKind = "switch"
	KindChoice     DataKind = "choice"
	KindFile       DataKind = "file"
	KindFolder     DataKind = "folder"
	KindColor      DataKind = "color"
	KindLowerBound DataKind = "lowerBound"
	KindUpperBound DataKind = "upperBound"
)

// Data is a typed input slot of an action or connector. Several actions may
// reference the same id; they must then agree on its format.
type Data struct {
	ID     string
	Format DataFormat
}

// DataFormat is implemented by the per-kind format types below.
type DataFormat interface {
	Kind() DataKind
	// SameShape reports whether two formats share kind and constraints.
	// Initial values are not compared.
	SameShape(other DataFormat) bool
}

// TextData is a free text field.
type TextData struct {
	Default string
}

// NumberData is a numeric field with an optional range.
type NumberData struct {
	Default       float64
	AllowDecimals bool
	Min           *float64
	Max           *float64
}

// SwitchData is an on/off field.
type SwitchData struct {
	Default bool
}

// ChoiceData is a field restricted to a fixed list of values.
type ChoiceData struct {
	Default string
	Choices []string
}

// FileData is a file picker, optionally restricted to extensions.
type FileData struct {
	Default    string
	Extensions []string
}

// FolderData is a folder picker.
type FolderData struct {
	Default string
}

// ColorData is a colour picker holding a #RRGGBB or #RRGGBBAA value.
type ColorData struct {
	Default string
}

// BoundData is an integer lower or upper bound of a connector range.
type BoundData struct {
	Upper   bool
	Default int64
	Min     *int64
	Max     *int64
}

func (TextData) Kind() DataKind   { return KindText }
func (NumberData) Kind() DataKind { return KindNumber }
func (SwitchData) Kind() DataKind { return KindSwitch }
func (ChoiceData) Kind() DataKind { return KindChoice }
func (FileData) Kind() DataKind   { return KindFile }
func (FolderData) Kind() DataKind { return KindFolder }
func (ColorData) Kind() DataKind  { return KindColor }

func (b BoundData) Kind() DataKind {
	if b.Upper {
		return KindUpperBound
	}
	return KindLowerBound
}

func (TextData) SameShape(o DataFormat) bool   { _, ok := o.(TextData); return ok }
func (SwitchData) SameShape(o DataFormat) bool { _, ok := o.(SwitchData); return ok }
func (FolderData) SameShape(o DataFormat) bool { _, ok := o.(FolderData); return ok }
func (ColorData) SameShape(o DataFormat) bool  { _, ok := o.(ColorData); return ok }

func (n NumberData) SameShape(o DataFormat) bool {
	m, ok := o.(NumberData)
	return ok && n.AllowDecimals == m.AllowDecimals && equalPtr(n.Min, m.Min) && equalPtr(n.Max, m.Max)
}

func (c ChoiceData) SameShape(o DataFormat) bool {
	d, ok := o.(ChoiceData)
	return ok && slices.Equal(c.Choices, d.Choices)
}

func (f FileData) SameShape(o DataFormat) bool {
	g, ok := o.(FileData)
	return ok && slices.Equal(f.Extensions, g.Extensions)
}

func (b BoundData) SameShape(o DataFormat) bool {
	c, ok := o.(BoundData)
	return ok && b.Upper == c.Upper && equalPtr(b.Min, c.Min) && equalPtr(b.Max, c.Max)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Describe renders the format's constraints for error messages.
func Describe(f DataFormat) string {
	switch v := f.(type) {
	case NumberData:
		return fmt.Sprintf("number(decimals=%t, min=%s, max=%s)", v.AllowDecimals, fmtPtr(v.Min), fmtPtr(v.Max))
	case ChoiceData:
		return fmt.Sprintf("choice%q", v.Choices)
	case FileData:
		return fmt.Sprintf("file%q", v.Extensions)
	case BoundData:
		return fmt.Sprintf("%s(min=%s, max=%s)", v.Kind(), fmtPtr(v.Min), fmtPtr(v.Max))
	case nil:
		return "<none>"
	default:
		return string(f.Kind())
	}
}

func fmtPtr[T int64 | float64](p *T) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprint(*p)
}

type dataWire struct {
	ID            string          `json:"id"`
	Type          DataKind        `json:"type"`
	Default       json.RawMessage `json:"default"`
	AllowDecimals *bool           `json:"allowDecimals,omitempty"`
	MinValue      *json.Number    `json:"minValue,omitempty"`
	MaxValue      *json.Number    `json:"maxValue,omitempty"`
	ValueChoices  []string        `json:"valueChoices,omitempty"`
	Extensions    []string        `json:"extensions,omitempty"`
}

func floatNumber(p *float64) *json.Number {
	if p == nil {
		return nil
	}
	n := json.Number(strconv.FormatFloat(*p, 'f', -1, 64))
	return &n
}

func intNumber(p *int64) *json.Number {
	if p == nil {
		return nil
	}
	n := json.Number(strconv.FormatInt(*p, 10))
	return &n
}

// MarshalJSON flattens the format into the host's data object.
func (d Data) MarshalJSON() ([]byte, error) {
	if d.Format == nil {
		return nil, fmt.Errorf("data %q has no format", d.ID)
	}
	w := dataWire{ID: d.ID, Type: d.Format.Kind()}
	var def any
	switch f := d.Format.(type) {
	case TextData:
		def = f.Default
	case NumberData:
		def = f.Default
		if !f.AllowDecimals {
			no := false
			w.AllowDecimals = &no
		}
		w.MinValue, w.MaxValue = floatNumber(f.Min), floatNumber(f.Max)
	case SwitchData:
		def = f.Default
	case ChoiceData:
		def = f.Default
		w.ValueChoices = f.Choices
	case FileData:
		def = f.Default
		w.Extensions = f.Extensions
	case FolderData:
		def = f.Default
	case ColorData:
		def = f.Default
	case BoundData:
		def = f.Default
		w.MinValue, w.MaxValue = intNumber(f.Min), intNumber(f.Max)
	default:
		return nil, fmt.Errorf("data %q: unsupported format %T", d.ID, d.Format)
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("data %q default: %w", d.ID, err)
	}
	w.Default = raw
	return json.Marshal(w)
}

// UnmarshalJSON reads a host data object back into its typed format.
func (d *Data) UnmarshalJSON(b []byte) error {
	var w dataWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d.ID = w.ID

	decodeDefault := func(v any) error {
		if len(w.Default) == 0 {
			return nil
		}
		if err := json.Unmarshal(w.Default, v); err != nil {
			return fmt.Errorf("data %q default: %w", w.ID, err)
		}
		return nil
	}

	switch w.Type {
	case KindText:
		var f TextData
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		d.Format = f
	case KindNumber:
		f := NumberData{AllowDecimals: w.AllowDecimals == nil || *w.AllowDecimals}
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		var err error
		if f.Min, err = parseFloatPtr(w.MinValue); err != nil {
			return fmt.Errorf("data %q minValue: %w", w.ID, err)
		}
		if f.Max, err = parseFloatPtr(w.MaxValue); err != nil {
			return fmt.Errorf("data %q maxValue: %w", w.ID, err)
		}
		d.Format = f
	case KindSwitch:
		var f SwitchData
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		d.Format = f
	case KindChoice:
		f := ChoiceData{Choices: w.ValueChoices}
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		d.Format = f
	case KindFile:
		f := FileData{Extensions: w.Extensions}
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		d.Format = f
	case KindFolder:
		var f FolderData
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		d.Format = f
	case KindColor:
		var f ColorData
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		d.Format = f
	case KindLowerBound, KindUpperBound:
		f := BoundData{Upper: w.Type == KindUpperBound}
		if err := decodeDefault(&f.Default); err != nil {
			return err
		}
		var err error
		if f.Min, err = parseIntPtr(w.MinValue); err != nil {
			return fmt.Errorf("data %q minValue: %w", w.ID, err)
		}
		if f.Max, err = parseIntPtr(w.MaxValue); err != nil {
			return fmt.Errorf("data %q maxValue: %w", w.ID, err)
		}
		d.Format = f
	default:
		return fmt.Errorf("data %q: unknown type %q", w.ID, w.Type)
	}
	return nil
}

func parseFloatPtr(n *json.Number) (*float64, error) {
	if n == nil {
		return nil, nil
	}
	v, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseIntPtr(n *json.Number) (*int64, error) {
	if n == nil {
		return nil, nil
	}
	v, err := n.Int64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
